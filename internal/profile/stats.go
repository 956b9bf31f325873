package profile

import (
	"sort"
	"time"
	"unicode/utf8"

	"scrambler/internal/classify"
)

// isoTimestamp is how date bounds are rendered into a FieldConstraint.
const isoTimestamp = "2006-01-02T15:04:05"

// fieldStats is the mutable per-column accumulator. It is created at the
// start of a profiling run, updated once per sampled row, and irreversibly
// frozen into a FieldConstraint by constraint(); no mutation happens after
// that.
type fieldStats struct {
	name string

	typeCounts    map[classify.FieldType]int
	typeFirstSeen map[classify.FieldType]int
	observations  int

	minLen, maxLen int
	hasLen         bool

	minVal, maxVal float64
	hasVal         bool

	minDate, maxDate time.Time
	hasDate          bool

	nulls int

	// values holds distinct raw values while the column stays under the
	// cardinality cap. overflowed flips (and values is dropped) the first
	// time a new distinct value would push the set past the cap; it never
	// flips back.
	values     map[string]struct{}
	overflowed bool
}

func newFieldStats(name string) *fieldStats {
	return &fieldStats{
		name:          name,
		typeCounts:    make(map[classify.FieldType]int),
		typeFirstSeen: make(map[classify.FieldType]int),
		values:        make(map[string]struct{}),
	}
}

// observe folds one classified cell into the accumulator.
func (s *fieldStats) observe(raw string, t classify.FieldType) {
	if _, seen := s.typeCounts[t]; !seen {
		s.typeFirstSeen[t] = s.observations
	}
	s.typeCounts[t]++
	s.observations++

	if raw == "" {
		s.nulls++
		return
	}

	length := utf8.RuneCountInString(raw)
	if !s.hasLen {
		s.minLen, s.maxLen, s.hasLen = length, length, true
	} else {
		if length < s.minLen {
			s.minLen = length
		}
		if length > s.maxLen {
			s.maxLen = length
		}
	}

	if t.IsNumeric() {
		if v, ok := classify.NormalizeNumeric(raw); ok {
			if !s.hasVal {
				s.minVal, s.maxVal, s.hasVal = v, v, true
			} else {
				if v < s.minVal {
					s.minVal = v
				}
				if v > s.maxVal {
					s.maxVal = v
				}
			}
		}
	}

	if t.IsTemporal() {
		if dt, ok := classify.ParseDateTime(raw); ok {
			if !s.hasDate {
				s.minDate, s.maxDate, s.hasDate = dt, dt, true
			} else {
				if dt.Before(s.minDate) {
					s.minDate = dt
				}
				if dt.After(s.maxDate) {
					s.maxDate = dt
				}
			}
		}
	}

	if !s.overflowed {
		if _, dup := s.values[raw]; !dup {
			if len(s.values) < allowedValuesCap {
				s.values[raw] = struct{}{}
			} else {
				s.overflowed = true
				s.values = nil
			}
		}
	}
}

// finalType picks the most frequently observed non-empty type; ties break by
// whichever competing type was first observed in the column. A column with
// no non-empty observations resolves to TypeEmpty.
func (s *fieldStats) finalType() classify.FieldType {
	best := classify.TypeEmpty
	bestCount := 0
	bestFirst := 0

	for t, count := range s.typeCounts {
		if t == classify.TypeEmpty || count == 0 {
			continue
		}
		first := s.typeFirstSeen[t]
		if count > bestCount || (count == bestCount && first < bestFirst) {
			best, bestCount, bestFirst = t, count, first
		}
	}

	return best
}

// constraint freezes the accumulator into an immutable FieldConstraint.
func (s *fieldStats) constraint(sampledRows int) FieldConstraint {
	c := FieldConstraint{
		Name:     s.name,
		Type:     s.finalType(),
		Nullable: s.nulls > 0,
	}

	if s.hasLen {
		minLen, maxLen := s.minLen, s.maxLen
		c.MinLength, c.MaxLength = &minLen, &maxLen
	}
	if s.hasVal {
		minVal, maxVal := s.minVal, s.maxVal
		c.MinValue, c.MaxValue = &minVal, &maxVal
	}
	if s.hasDate {
		c.DateMin = s.minDate.Format(isoTimestamp)
		c.DateMax = s.maxDate.Format(isoTimestamp)
	}

	if !s.overflowed && len(s.values) > 0 {
		vals := make([]string, 0, len(s.values))
		for v := range s.values {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		c.AllowedValues = vals
	}

	if sampledRows > 0 {
		c.NullFraction = float64(s.nulls) / float64(sampledRows)
	}

	return c
}
