package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"scrambler/internal/classify"
	"scrambler/internal/sniff"
	"scrambler/internal/textenc"
)

// Engine orchestrates decode → delimiter detection → row iteration →
// aggregation. It holds no mutable state between calls and is safe for
// concurrent use.
type Engine struct {
	codec *textenc.Codec
}

// NewEngine builds an Engine; a nil codec selects the default detector.
func NewEngine(codec *textenc.Codec) *Engine {
	if codec == nil {
		codec = textenc.NewCodec(nil)
	}
	return &Engine{codec: codec}
}

// Decode enforces the upload size cap, then detects the encoding and decodes
// content to text. Usable standalone by callers that need the detection
// verdict (encoding, confidence, sample fingerprint) before delimiter
// detection.
func (e *Engine) Decode(content []byte) (text string, det textenc.Detection, err error) {
	if len(content) > MaxUploadBytes {
		return "", textenc.Detection{}, ErrUploadTooLarge
	}
	text, det, err = e.codec.Decode(content)
	if err != nil {
		return "", det, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return text, det, nil
}

// FromBytes is the upload path: size check, decode, delimiter detection,
// then profiling.
func (e *Engine) FromBytes(content []byte, mode Mode) (*Result, error) {
	text, det, err := e.Decode(content)
	if err != nil {
		return nil, err
	}
	return e.FromText(text, "", mode, det.Encoding)
}

// FromText profiles already-decoded text. An empty delimiter triggers
// auto-detection; an empty encodingName records "utf-8".
func (e *Engine) FromText(text, delimiter string, mode Mode, encodingName string) (*Result, error) {
	if mode != ModeFast && mode != ModeStrict {
		return nil, ErrInvalidParseMode
	}
	if delimiter == "" {
		delimiter = sniff.Detect(text)
	}
	if encodingName == "" {
		encodingName = "utf-8"
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = []rune(delimiter)[0]
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	headers, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	stats := make([]*fieldStats, len(headers))
	for i, h := range headers {
		stats[i] = newFieldStats(h)
	}

	separators := map[string]struct{}{}

	examined := 0 // data rows seen, sampled or not
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Best-effort: a malformed line still counts against the cap.
			examined++
			if examined > MaxRows {
				return nil, ErrRowLimitExceeded
			}
			continue
		}

		examined++
		if examined > MaxRows {
			return nil, ErrRowLimitExceeded
		}
		if mode == ModeFast && examined > FastSampleRows {
			// Past the sample cap: keep counting rows so the hard cap
			// above still fires, but aggregate nothing.
			continue
		}

		for i := range headers {
			raw := ""
			if i < len(rec) {
				raw = rec[i]
			}
			if sep, ok := classify.DecimalSeparator(raw); ok {
				separators[sep] = struct{}{}
			}
			stats[i].observe(raw, classify.Classify(raw))
		}
	}

	sampled := examined
	if mode == ModeFast && sampled > FastSampleRows {
		sampled = FastSampleRows
	}

	fields := make([]FieldConstraint, len(stats))
	for i, s := range stats {
		fields[i] = s.constraint(sampled)
	}

	return &Result{
		RowCount:         sampled,
		Fields:           fields,
		Encoding:         encodingName,
		Delimiter:        delimiter,
		DecimalSeparator: resolveDecimalSeparator(separators),
	}, nil
}

// readHeader skips malformed or empty leading lines until a usable header
// row; an empty input yields no headers.
func readHeader(r *csv.Reader) ([]string, error) {
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil || len(rec) == 0 {
			continue
		}
		return stripHeaderBOM(rec), nil
	}
}

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func stripHeaderBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}
	return headers
}

// resolveDecimalSeparator applies the file-level vote: ',' wins only when a
// comma decimal was seen and a dot decimal never was; every other outcome,
// including both or neither, resolves to '.'.
func resolveDecimalSeparator(seen map[string]struct{}) string {
	_, comma := seen[","]
	_, dot := seen["."]
	if comma && !dot {
		return ","
	}
	return "."
}
