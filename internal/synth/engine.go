package synth

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math/rand"
	"strings"
	"time"

	"scrambler/internal/profile"
	"scrambler/internal/textenc"
)

// ErrRowCount rejects non-positive row requests; requests above the cap map
// to profile.ErrRowLimitExceeded instead.
var ErrRowCount = errors.New("row count must be at least 1")

// Engine turns a frozen profile into synthetic rows. It is stateless and
// safe for concurrent use; each call owns its own random stream.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Generate synthesizes rows under p's constraints. A nil seed draws one from
// the wall clock; a non-nil seed makes the output fully reproducible.
// decimalSep overrides the profiled separator when set to "." or ",".
func (e *Engine) Generate(p *profile.Result, rows int, seed *int64, decimalSep string) ([][]string, error) {
	if rows < 1 {
		return nil, ErrRowCount
	}
	if rows > profile.MaxRows {
		return nil, profile.ErrRowLimitExceeded
	}

	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}
	g := newGenerator(rand.New(rand.NewSource(s)), ResolveSeparator(p, decimalSep))

	out := make([][]string, rows)
	for i := range out {
		row := make([]string, len(p.Fields))
		for j, c := range p.Fields {
			row[j] = g.value(c)
		}
		out[i] = row
	}
	return out, nil
}

// ToCSV synthesizes rows and renders them as delimited text encoded in the
// profile's charset. The header row repeats the profiled field names.
func (e *Engine) ToCSV(p *profile.Result, rows int, seed *int64, decimalSep string) ([]byte, error) {
	records, err := e.Generate(p, rows, seed, decimalSep)
	if err != nil {
		return nil, err
	}

	delim := ','
	if p.Delimiter != "" {
		delim = []rune(p.Delimiter)[0]
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim

	header := make([]string, len(p.Fields))
	for i, c := range p.Fields {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	text := buf.String()
	if ResolveSeparator(p, decimalSep) == "," {
		// File-level rewrite so every remaining dot follows the separator
		// policy. Known limitation: it also hits dots inside quoted text,
		// which the stock token alphabet never produces.
		text = strings.ReplaceAll(text, ".", ",")
	}
	return textenc.Encode(text, p.Encoding)
}

// ResolveSeparator applies the separator policy shared by synthesis and the
// HTTP shell: an explicit "."/"," override wins, then the profiled
// separator, then ".".
func ResolveSeparator(p *profile.Result, override string) string {
	if override == "." || override == "," {
		return override
	}
	if p.DecimalSeparator == "," {
		return ","
	}
	return "."
}
