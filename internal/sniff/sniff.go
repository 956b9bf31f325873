// Package sniff infers the field delimiter of delimited text from a leading
// sample. It scores each candidate delimiter by how consistently it splits
// the sample into multi-column rows, and falls back to a deterministic
// count-based heuristic when no candidate produces a usable dialect.
package sniff

import (
	"encoding/csv"
	"io"
	"strings"
)

// sampleBytes is how much leading text the sniffer examines.
const sampleBytes = 8 * 1024

// candidates are tried in declaration order; order is the final tie-break.
var candidates = []rune{',', ';', '\t', '|'}

// minConsistency is the share of sampled rows that must agree on the modal
// column count for a candidate to be considered a valid dialect.
const minConsistency = 0.75

// Detect returns the inferred delimiter as a one-character string.
func Detect(text string) string {
	sample := text
	if len(sample) > sampleBytes {
		sample = sample[:sampleBytes]
		// Drop the trailing partial line so truncation can't skew scores.
		if i := strings.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i+1]
		}
	}

	if d, ok := sniffDialect(sample); ok {
		return string(d)
	}
	return string(fallback(sample))
}

// score captures how well one candidate delimiter explains the sample.
type score struct {
	cols        int     // modal column count
	consistency float64 // share of rows with the modal count
}

// sniffDialect parses the sample once per candidate and keeps the candidate
// whose rows agree most on a multi-column width. Ties prefer the higher
// modal column count, then candidate declaration order (stable).
func sniffDialect(sample string) (rune, bool) {
	var (
		best    rune
		bestSc  score
		haveHit bool
	)

	for _, cand := range candidates {
		sc, ok := scoreCandidate(sample, cand)
		if !ok {
			continue
		}
		better := !haveHit ||
			sc.consistency > bestSc.consistency ||
			(sc.consistency == bestSc.consistency && sc.cols > bestSc.cols)
		if better {
			best, bestSc, haveHit = cand, sc, true
		}
	}

	return best, haveHit
}

// scoreCandidate splits the sample with cand and measures column-count
// consistency. Candidates that never yield more than one column, or whose
// rows disagree too much, are rejected.
func scoreCandidate(sample string, cand rune) (score, bool) {
	r := csv.NewReader(strings.NewReader(sample))
	r.Comma = cand
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	counts := map[int]int{}
	rows := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		counts[len(rec)]++
		rows++
	}
	if rows == 0 {
		return score{}, false
	}

	modeCols, modeFreq := 0, 0
	for cols, freq := range counts {
		if freq > modeFreq || (freq == modeFreq && cols > modeCols) {
			modeCols, modeFreq = cols, freq
		}
	}
	if modeCols < 2 {
		return score{}, false
	}

	sc := score{cols: modeCols, consistency: float64(modeFreq) / float64(rows)}
	if sc.consistency < minConsistency {
		return score{}, false
	}
	return sc, true
}

// fallback applies the deterministic count heuristic: ';' beats ',' when
// strictly more frequent and present, then '|' under the same rule, then
// '\t' if present at all, else ','.
func fallback(sample string) rune {
	commas := strings.Count(sample, ",")
	if n := strings.Count(sample, ";"); n > commas && n > 0 {
		return ';'
	}
	if n := strings.Count(sample, "|"); n > commas && n > 0 {
		return '|'
	}
	if strings.Count(sample, "\t") > 0 {
		return '\t'
	}
	return ','
}
