package profile

import "errors"

// Terminal error kinds surfaced by the core. Callers (HTTP/CLI shells) map
// these to transport-specific codes; none of them is retried internally.
var (
	// ErrUploadTooLarge is returned before decoding when the input byte
	// length exceeds MaxUploadBytes.
	ErrUploadTooLarge = errors.New("profile: file too large (50 MiB limit)")

	// ErrDecodeFailure is returned when no encoding, including UTF-8 with
	// replacement, could decode the bytes. Defensive; not expected in
	// practice.
	ErrDecodeFailure = errors.New("profile: unable to decode file")

	// ErrRowLimitExceeded is returned when the data-row count (input during
	// profiling, requested count during synthesis) exceeds MaxRows.
	ErrRowLimitExceeded = errors.New("profile: row limit exceeded (100000 max)")

	// ErrInvalidParseMode is returned for an unrecognized parse mode token.
	ErrInvalidParseMode = errors.New(`profile: mode must be "fast" or "strict"`)
)
