package profile

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrambler/internal/classify"
)

func TestFromText_TypeInferenceScenario(t *testing.T) {
	t.Parallel()

	text := "a,b,c\n1,hello,TRUE\n2,world,false\n,hi,\n"
	e := NewEngine(nil)

	res, err := e.FromText(text, "", ModeStrict, "utf-8")
	require.NoError(t, err)

	assert.Equal(t, 3, res.RowCount)
	require.Len(t, res.Fields, 3)

	a := res.Fields[0]
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, classify.TypeInteger, a.Type)
	assert.True(t, a.Nullable)

	b := res.Fields[1]
	require.NotNil(t, b.MinLength)
	require.NotNil(t, b.MaxLength)
	assert.Equal(t, 2, *b.MinLength)
	assert.Equal(t, 5, *b.MaxLength)
	assert.False(t, b.Nullable)

	c := res.Fields[2]
	assert.Equal(t, classify.TypeBoolean, c.Type)
	assert.InDelta(t, 1.0/3.0, c.NullFraction, 1e-9)
}

func TestFromText_DelimiterAutoDetection(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	res, err := e.FromText("x;y\n1;2\n3;4\n", "", ModeStrict, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, ";", res.Delimiter)
	assert.Equal(t, 2, res.RowCount)
}

func TestFromText_TemporalAndDecimal(t *testing.T) {
	t.Parallel()

	text := "d,ts,v\n2024-01-02,2024-01-02T10:00:00,12.345\n2024-02-03,2024-02-03T11:30:00,67.8\n"
	e := NewEngine(nil)

	res, err := e.FromText(text, ",", ModeStrict, "utf-8")
	require.NoError(t, err)

	assert.Equal(t, classify.TypeDate, res.Fields[0].Type)
	assert.Equal(t, "2024-01-02T00:00:00", res.Fields[0].DateMin)
	assert.Equal(t, "2024-02-03T00:00:00", res.Fields[0].DateMax)

	assert.Equal(t, classify.TypeDateTime, res.Fields[1].Type)
	assert.Equal(t, "2024-01-02T10:00:00", res.Fields[1].DateMin)

	assert.Equal(t, classify.TypeDecimal, res.Fields[2].Type)
	require.NotNil(t, res.Fields[2].MinValue)
	assert.InDelta(t, 12.345, *res.Fields[2].MinValue, 1e-9)
	assert.InDelta(t, 67.8, *res.Fields[2].MaxValue, 1e-9)

	assert.Equal(t, ".", res.DecimalSeparator)
}

func TestFromText_CommaDecimalSeparatorWins(t *testing.T) {
	t.Parallel()

	text := "v\n\"1,5\"\n\"2,75\"\n"
	e := NewEngine(nil)

	res, err := e.FromText(text, ",", ModeStrict, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, ",", res.DecimalSeparator)
}

func TestFromText_MixedSeparatorsResolveToDot(t *testing.T) {
	t.Parallel()

	text := "u;v\n1.5;\"2,5\"\n"
	e := NewEngine(nil)

	res, err := e.FromText(text, ";", ModeStrict, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, ".", res.DecimalSeparator)
}

func TestFromText_RowCapStrict(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < MaxRows+1; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	e := NewEngine(nil)
	_, err := e.FromText(sb.String(), ",", ModeStrict, "utf-8")
	assert.ErrorIs(t, err, ErrRowLimitExceeded)
}

func TestFromText_FastModeSamplesAndStillEnforcesCap(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < FastSampleRows+100; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	e := NewEngine(nil)
	res, err := e.FromText(sb.String(), ",", ModeFast, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, FastSampleRows, res.RowCount)
}

func TestFromText_FastModeHardCap(t *testing.T) {
	// Not parallel: builds a MaxRows-sized input.
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < MaxRows+1; i++ {
		sb.WriteString("7\n")
	}

	e := NewEngine(nil)
	_, err := e.FromText(sb.String(), ",", ModeFast, "utf-8")
	assert.ErrorIs(t, err, ErrRowLimitExceeded)
}

func TestFromText_InvalidMode(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	_, err := e.FromText("a\n1\n", ",", Mode("turbo"), "utf-8")
	assert.ErrorIs(t, err, ErrInvalidParseMode)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFast, m)

	m, err = ParseMode("strict")
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, m)

	_, err = ParseMode("turbo")
	assert.ErrorIs(t, err, ErrInvalidParseMode)
}

func TestDecode_SizeCap(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	_, _, err := e.Decode(make([]byte, MaxUploadBytes+1))
	assert.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestFromText_CardinalityCap(t *testing.T) {
	t.Parallel()

	// 51 distinct values: allowed_values must never be populated even
	// though every other statistic is still computed.
	var sb strings.Builder
	sb.WriteString("w\n")
	for i := 0; i < 51; i++ {
		fmt.Fprintf(&sb, "word%02d\n", i)
	}

	e := NewEngine(nil)
	res, err := e.FromText(sb.String(), ",", ModeStrict, "utf-8")
	require.NoError(t, err)

	w := res.Fields[0]
	assert.Nil(t, w.AllowedValues)
	require.NotNil(t, w.MinLength)
	assert.Equal(t, 6, *w.MinLength)
	assert.Equal(t, 51, res.RowCount)
}

func TestFromText_CardinalityAtCap(t *testing.T) {
	t.Parallel()

	// Exactly 50 distinct values: the set survives, sorted.
	var sb strings.Builder
	sb.WriteString("w\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "word%02d\n", i)
	}

	e := NewEngine(nil)
	res, err := e.FromText(sb.String(), ",", ModeStrict, "utf-8")
	require.NoError(t, err)

	w := res.Fields[0]
	require.Len(t, w.AllowedValues, 50)
	assert.Equal(t, "word00", w.AllowedValues[0])
	assert.Equal(t, "word49", w.AllowedValues[49])
}

func TestFromText_EmptyColumnResolvesEmpty(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	res, err := e.FromText("a,b\n1,\n2,\n", ",", ModeStrict, "utf-8")
	require.NoError(t, err)

	b := res.Fields[1]
	assert.Equal(t, classify.TypeEmpty, b.Type)
	assert.True(t, b.Nullable)
	assert.Nil(t, b.MinLength)
	assert.InDelta(t, 1.0, b.NullFraction, 1e-9)
}

func TestFromText_TieBreakFirstSeen(t *testing.T) {
	t.Parallel()

	// Two floats and two integers tie on count; whichever type appeared
	// first in the column wins.
	e := NewEngine(nil)

	res, err := e.FromText("v\ninf\nnan\n3\n4\n", ",", ModeStrict, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, classify.TypeFloat, res.Fields[0].Type)

	res, err = e.FromText("v\n3\n4\ninf\nnan\n", ",", ModeStrict, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, classify.TypeInteger, res.Fields[0].Type)
}

func TestFromText_ShortRowsPadEmpty(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	res, err := e.FromText("a,b,c\n1,2\n", ",", ModeStrict, "utf-8")
	require.NoError(t, err)

	c := res.Fields[2]
	assert.True(t, c.Nullable)
	assert.Equal(t, classify.TypeEmpty, c.Type)
}

func TestFromBytes_Latin1TabSeparated(t *testing.T) {
	t.Parallel()

	// Latin-1 bytes, tab-separated. The accented byte forces an 8-bit
	// verdict; the sniffer should land on tab.
	raw := []byte("nom\tville\nRen\xe9\tParis\nNo\xebl\tLyon\n")
	e := NewEngine(nil)

	res, err := e.FromBytes(raw, ModeStrict)
	require.NoError(t, err)
	assert.Equal(t, "\t", res.Delimiter)
	assert.NotEqual(t, "utf-8", res.Encoding)
	assert.Equal(t, 2, res.RowCount)
}
