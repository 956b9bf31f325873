// Package profile implements the profiling engine: it walks already-decoded
// delimited text, classifies every sampled cell, aggregates per-column
// statistics, and freezes them into an immutable Result that the synthesis
// engine consumes as its contract.
package profile

import "scrambler/internal/classify"

// Limits that bind the core. The HTTP/CLI shells read them too, so the
// values live here rather than in process configuration.
const (
	// MaxUploadBytes caps input size, enforced before decoding.
	MaxUploadBytes = 50 << 20

	// MaxRows is the hard cap on rows read during profiling and on rows
	// requested during synthesis.
	MaxRows = 100_000

	// FastSampleRows is how many rows fast mode aggregates before it stops
	// sampling (row counting continues so MaxRows is still enforced).
	FastSampleRows = 5_000

	// allowedValuesCap bounds the distinct-value set kept per column. Once
	// a column exceeds this many distinct non-empty values the set is
	// permanently dropped; counting of all other statistics continues.
	allowedValuesCap = 50
)

// FieldConstraint is the frozen statistical/type summary for one column.
// Optional members are pointers (or empty strings/slices) so their absence
// survives a JSON round trip.
type FieldConstraint struct {
	Name     string             `json:"name"`
	Type     classify.FieldType `json:"type"`
	Nullable bool               `json:"nullable"`

	// MinLength/MaxLength are raw-text length bounds over non-empty cells.
	MinLength *int `json:"min_length,omitempty"`
	MaxLength *int `json:"max_length,omitempty"`

	// MinValue/MaxValue are normalized numeric bounds, numeric types only.
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`

	// AllowedValues is a sorted low-cardinality enumeration of distinct raw
	// values, present only if the distinct count never exceeded the cap.
	AllowedValues []string `json:"allowed_values,omitempty"`

	// NullFraction is nulls divided by sampled rows, in [0,1].
	NullFraction float64 `json:"null_fraction"`

	// DateMin/DateMax are ISO-8601 strings, date/datetime types only.
	DateMin string `json:"date_min,omitempty"`
	DateMax string `json:"date_max,omitempty"`
}

// Result is the immutable outcome of one profiling run. It may be reused
// across any number of synthesis calls.
type Result struct {
	RowCount         int               `json:"row_count"`
	Fields           []FieldConstraint `json:"fields"`
	Encoding         string            `json:"encoding"`
	Delimiter        string            `json:"delimiter"`
	DecimalSeparator string            `json:"decimal_separator"`
}
