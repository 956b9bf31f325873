// Package synth implements the synthesis engine: constraint-driven,
// seed-reproducible generation of synthetic rows and their encoding back to
// delimited-text bytes.
//
// All draws come from one explicit random stream owned by the call, consumed
// in strict row-major, field-minor order. That ordering is the
// reproducibility contract: identical (profile, row count, seed) always
// yields byte-identical output.
package synth

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"scrambler/internal/classify"
	"scrambler/internal/profile"
)

// tokenAlphabet is the noise alphabet for synthesized strings: letters,
// digits, and a fixed punctuation set.
const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"_-+=@#%&$!*"

// maxNullProbability bounds worst-case null density so synthetic output is
// never entirely empty, no matter how sparse the profiled column was.
const maxNullProbability = 0.9

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// generator produces one synthetic cell at a time for a fixed decimal
// separator, drawing from a shared stream. It is not safe for concurrent
// use; each synthesis call owns its own instance.
type generator struct {
	rng        *rand.Rand
	decimalSep string
	now        func() time.Time
}

func newGenerator(rng *rand.Rand, decimalSep string) *generator {
	return &generator{rng: rng, decimalSep: decimalSep, now: time.Now}
}

// value generates one synthetic cell under c. Fields are independent; no
// cross-field correlation is attempted.
func (g *generator) value(c profile.FieldConstraint) string {
	// The null draw always consumes one uniform value, nullable or not, to
	// keep the stream order identical across profiles that differ only in
	// nullability.
	if draw := g.rng.Float64(); draw < nullProbability(c) && c.Nullable {
		return ""
	}

	switch c.Type {
	case classify.TypeBoolean:
		return g.boolean()
	case classify.TypeInteger:
		return g.integer(c)
	case classify.TypeFloat:
		return g.float(c)
	case classify.TypeDecimal:
		return g.decimal(c)
	case classify.TypeDate, classify.TypeDateTime:
		return g.temporal(c)
	case classify.TypeString, classify.TypeEmpty:
		return g.text(c)
	}
	return g.text(c)
}

func (g *generator) boolean() string {
	if g.rng.Intn(2) == 0 {
		return "true"
	}
	return "false"
}

func (g *generator) integer(c profile.FieldConstraint) string {
	low, high := intBounds(c)

	if ints := parsedInts(c.AllowedValues); len(ints) > 0 {
		choice := ints[g.rng.Intn(len(ints))]
		jitter := g.rng.Int63n(11) - 5
		return strconv.FormatInt(clampInt(saturatingAdd(choice, jitter), low, high), 10)
	}
	return strconv.FormatInt(g.uniformInt64(low, high), 10)
}

// intBounds resolves the constraint's integer window. Profiled bounds come
// from float64 normalization and may exceed the int64 range (arbitrary-width
// digit strings still classify integer), so they are clamped before
// conversion; degenerate windows are widened.
func intBounds(c profile.FieldConstraint) (int64, int64) {
	low := int64(0)
	if c.MinValue != nil {
		low = int64Bound(*c.MinValue)
	}
	high := int64(1000)
	if c.MaxValue != nil {
		high = int64Bound(*c.MaxValue)
	} else if low >= high {
		high = saturatingAdd(low, 1)
	}
	if high < low {
		low, high = high, low
	}
	if low == high {
		high = saturatingAdd(low, 10)
		if high == low {
			low -= 10
		}
	}
	return low, high
}

// uniformInt64 draws uniformly from [low, high]. The span may exceed what
// Int63n can represent, so the draw runs in uint64 space.
func (g *generator) uniformInt64(low, high int64) int64 {
	span := uint64(high) - uint64(low)
	if span == math.MaxUint64 {
		return int64(g.rng.Uint64())
	}
	return int64(uint64(low) + g.uint64n(span+1))
}

// uint64n draws uniformly from [0, n), rejecting the biased tail of the
// Uint64 range. n must be nonzero.
func (g *generator) uint64n(n uint64) uint64 {
	limit := math.MaxUint64 - math.MaxUint64%n
	for {
		if v := g.rng.Uint64(); v < limit {
			return v % n
		}
	}
}

func (g *generator) float(c profile.FieldConstraint) string {
	low := 0.0
	if c.MinValue != nil {
		low = *c.MinValue
	}
	high := math.Max(low+1, 1000)
	if c.MaxValue != nil {
		high = *c.MaxValue
	}
	if low == high {
		high = low + 1
	}

	var out float64
	if floats := parsedFloats(c.AllowedValues); len(floats) > 0 {
		choice := floats[g.rng.Intn(len(floats))]
		span := math.Max(0.1, (high-low)*0.05)
		out = clampFloat(choice+g.uniform(-span, span), low, high)
	} else {
		out = g.uniform(low, high)
	}
	return g.applySep(strconv.FormatFloat(out, 'f', 3, 64))
}

func (g *generator) decimal(c profile.FieldConstraint) string {
	low := decimal.Zero
	if c.MinValue != nil {
		low = decimal.NewFromFloat(*c.MinValue)
	}
	high := decimal.NewFromInt(1000)
	if m := low.Add(decimal.NewFromInt(1)); m.GreaterThan(high) {
		high = m
	}
	if c.MaxValue != nil {
		high = decimal.NewFromFloat(*c.MaxValue)
	}
	if low.Equal(high) {
		high = low.Add(decimal.NewFromInt(1))
	}

	var out decimal.Decimal
	if decs := parsedDecimals(c.AllowedValues); len(decs) > 0 {
		choice := decs[g.rng.Intn(len(decs))]
		span := high.Sub(low).Mul(decimal.NewFromFloat(0.05))
		jitter := span.Mul(decimal.NewFromFloat(2*g.rng.Float64() - 1))
		out = clampDecimal(choice.Add(jitter), low, high)
	} else {
		out = low.Add(high.Sub(low).Mul(decimal.NewFromFloat(g.rng.Float64())))
	}
	return g.applySep(out.StringFixed(3))
}

func (g *generator) temporal(c profile.FieldConstraint) string {
	now := g.now()
	start := now.Add(-365 * 24 * time.Hour)
	end := now

	if c.DateMin != "" {
		if t, ok := classify.ParseDateTime(c.DateMin); ok {
			start = t
		}
	}
	if c.DateMax != "" {
		if t, ok := classify.ParseDateTime(c.DateMax); ok {
			end = t
		}
	}
	if !start.Before(end) {
		end = start.Add(24 * time.Hour)
	}

	delta := int64(end.Sub(start) / time.Second)
	if delta < 1 {
		delta = 1
	}
	ts := start.Add(time.Duration(g.rng.Int63n(delta+1)) * time.Second)

	if c.Type == classify.TypeDate {
		return ts.Format(dateLayout)
	}
	return ts.Format(dateTimeLayout)
}

// text synthesizes a fresh high-entropy token. Original content is never
// echoed: when allowed values exist, only the length of a uniformly chosen
// sample (plus a small upward margin) shapes the token.
func (g *generator) text(c profile.FieldConstraint) string {
	if len(c.AllowedValues) > 0 {
		sample := c.AllowedValues[g.rng.Intn(len(c.AllowedValues))]
		sampleLen := utf8.RuneCountInString(sample)

		minLen := maxInt(1, sampleLen)
		if c.MinLength != nil && *c.MinLength > 0 {
			minLen = *c.MinLength
		}
		maxLen := maxInt(minLen, sampleLen+8)
		if c.MaxLength != nil && *c.MaxLength > 0 {
			maxLen = *c.MaxLength
		}
		return g.token(minLen, maxLen)
	}

	minLen := 8
	if c.MinLength != nil && *c.MinLength > 0 {
		minLen = *c.MinLength
	}
	maxLen := maxInt(minLen+8, 24)
	if c.MaxLength != nil && *c.MaxLength > 0 {
		maxLen = *c.MaxLength
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	return g.token(minLen, maxLen)
}

// token draws a uniform length in [minLen, maxLen] (clamped so
// maxLen >= minLen >= 1) and fills it from the noise alphabet.
func (g *generator) token(minLen, maxLen int) string {
	if minLen < 1 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	n := minLen + g.rng.Intn(maxLen-minLen+1)

	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(tokenAlphabet[g.rng.Intn(len(tokenAlphabet))])
	}
	return b.String()
}

// uniform draws from [low, high).
func (g *generator) uniform(low, high float64) float64 {
	return low + g.rng.Float64()*(high-low)
}

// applySep substitutes the comma decimal separator into a formatted number
// when the caller requested ','.
func (g *generator) applySep(s string) string {
	if g.decimalSep == "," {
		return strings.ReplaceAll(s, ".", ",")
	}
	return s
}

func nullProbability(c profile.FieldConstraint) float64 {
	p := c.NullFraction
	if p < 0 {
		return 0
	}
	return math.Min(p, maxNullProbability)
}

func parsedInts(allowed []string) []int64 {
	out := make([]int64, 0, len(allowed))
	for _, v := range allowed {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func parsedFloats(allowed []string) []float64 {
	out := make([]float64, 0, len(allowed))
	for _, v := range allowed {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

func parsedDecimals(allowed []string) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(allowed))
	for _, v := range allowed {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// int64Bound clamps a float64 into the int64 range before conversion; the
// out-of-range conversion itself is implementation-defined.
func int64Bound(f float64) int64 {
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

// saturatingAdd adds with saturation at the int64 limits instead of
// wrapping.
func saturatingAdd(v, d int64) int64 {
	sum := v + d
	if d > 0 && sum < v {
		return math.MaxInt64
	}
	if d < 0 && sum > v {
		return math.MinInt64
	}
	return sum
}

func clampInt(v, low, high int64) int64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func clampFloat(v, low, high float64) float64 {
	return math.Min(high, math.Max(low, v))
}

func clampDecimal(v, low, high decimal.Decimal) decimal.Decimal {
	if v.LessThan(low) {
		return low
	}
	if v.GreaterThan(high) {
		return high
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
