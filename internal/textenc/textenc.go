// Package textenc detects the byte-level text encoding of an uploaded file
// and converts between raw bytes and UTF-8 text.
//
// Detection is an injectable capability: the default backend is a chardet
// statistical detector, but callers (and tests) can supply their own
// Detector so the decode path stays decoupled from any particular library.
package textenc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"github.com/zeebo/xxh3"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// detectSampleBytes caps how much of the input the detector scores.
	detectSampleBytes = 1_000_000

	// zeroProbeBytes is the window scanned for embedded zero bytes when
	// vetting a 16-bit Unicode verdict.
	zeroProbeBytes = 256

	// fallbackEncoding is the single-byte Western encoding substituted when
	// a UTF-16 verdict looks like a false positive, and the name reported
	// after a lossy fallback decode.
	fallbackEncoding = "iso-8859-1"
)

// Detection is the outcome of scoring a byte sample.
type Detection struct {
	// Encoding is an IANA-style charset name, lowercased.
	Encoding string
	// Confidence is the detector's score in [0,1].
	Confidence float64
	// Fingerprint is an xxh3 hash of the scored sample, useful for logging
	// and for correlating repeated uploads of the same file.
	Fingerprint uint64
}

// Detector scores a byte sample and names its most likely encoding.
type Detector interface {
	DetectBest(sample []byte) (Detection, error)
}

// chardetDetector adapts the chardet text detector to the Detector seam.
type chardetDetector struct {
	det *chardet.Detector
}

// NewChardetDetector returns the default, chardet-backed Detector.
func NewChardetDetector() Detector {
	return &chardetDetector{det: chardet.NewTextDetector()}
}

func (c *chardetDetector) DetectBest(sample []byte) (Detection, error) {
	res, err := c.det.DetectBest(sample)
	if err != nil {
		return Detection{}, err
	}
	return Detection{
		Encoding:   strings.ToLower(res.Charset),
		Confidence: float64(res.Confidence) / 100,
	}, nil
}

// Codec pairs a Detector with decode/encode logic.
type Codec struct {
	det Detector
}

// NewCodec builds a Codec around det; a nil det selects the chardet default.
func NewCodec(det Detector) *Codec {
	if det == nil {
		det = NewChardetDetector()
	}
	return &Codec{det: det}
}

// Detect scores up to the first 1,000,000 bytes of content.
//
// A 16-bit Unicode verdict with no zero byte in the first 256 bytes is an
// empirically common false positive for short plain-ASCII samples; it is
// overridden to a single-byte Western encoding.
func (c *Codec) Detect(content []byte) Detection {
	sample := content
	if len(sample) > detectSampleBytes {
		sample = sample[:detectSampleBytes]
	}

	out := Detection{Encoding: "utf-8", Fingerprint: xxh3.Hash(sample)}
	if len(sample) == 0 {
		return out
	}

	// Pure ASCII decodes identically under every candidate the detector
	// could name; skip it and report UTF-8.
	if isASCII(sample) {
		out.Confidence = 1
		return out
	}

	det, err := c.det.DetectBest(sample)
	if err != nil || det.Encoding == "" {
		return out
	}
	out.Encoding = det.Encoding
	out.Confidence = det.Confidence

	if strings.HasPrefix(out.Encoding, "utf-16") {
		probe := sample
		if len(probe) > zeroProbeBytes {
			probe = probe[:zeroProbeBytes]
		}
		if !bytes.ContainsRune(probe, 0) {
			out.Encoding = fallbackEncoding
		}
	}

	return out
}

// Decode detects content's encoding and decodes it to UTF-8 text, returning
// the full Detection (verdict, confidence, sample fingerprint) alongside the
// text. A failed decode falls back to a lossy UTF-8 interpretation with
// replacement runes; total failure is not expected in practice, and the
// error return exists only so callers can handle it defensively.
func (c *Codec) Decode(content []byte) (text string, det Detection, err error) {
	det = c.Detect(content)

	if isUTF8Name(det.Encoding) {
		if utf8.Valid(content) {
			return string(content), det, nil
		}
		det.Encoding = "utf-8"
		return lossyUTF8(content), det, nil
	}

	enc, lookupErr := htmlindex.Get(det.Encoding)
	if lookupErr == nil {
		decoded, decodeErr := enc.NewDecoder().Bytes(content)
		if decodeErr == nil {
			return string(decoded), det, nil
		}
	}

	det.Encoding = "utf-8"
	return lossyUTF8(content), det, nil
}

// Encode converts UTF-8 text back into bytes of the named encoding. Runes
// the target charset cannot represent are substituted rather than failing,
// and an unknown name falls back to UTF-8 bytes.
func Encode(text, encodingName string) ([]byte, error) {
	if encodingName == "" || isUTF8Name(encodingName) {
		return []byte(text), nil
	}

	enc, err := htmlindex.Get(encodingName)
	if err != nil {
		return []byte(text), nil
	}

	encoder := encoding.ReplaceUnsupported(enc.NewEncoder())
	out, err := encoder.Bytes([]byte(text))
	if err != nil {
		return []byte(text), nil
	}
	return out, nil
}

// lossyUTF8 reinterprets content as UTF-8, substituting invalid sequences
// with the replacement rune. It cannot fail.
func lossyUTF8(content []byte) string {
	return strings.ToValidUTF8(string(content), string(utf8.RuneError))
}

func isASCII(sample []byte) bool {
	for _, b := range sample {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8", "utf-8-sig", "ascii", "us-ascii":
		return true
	}
	return false
}
