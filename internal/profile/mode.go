package profile

// Mode selects the sampling policy for one profiling run.
type Mode string

const (
	// ModeFast aggregates at most FastSampleRows rows.
	ModeFast Mode = "fast"

	// ModeStrict aggregates every row up to the MaxRows hard cap.
	ModeStrict Mode = "strict"
)

// DefaultMode is used when a caller supplies no mode token at all.
const DefaultMode = ModeFast

// ParseMode validates a user-supplied mode token. The empty string resolves
// to DefaultMode; anything else unrecognized is ErrInvalidParseMode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return DefaultMode, nil
	case ModeFast:
		return ModeFast, nil
	case ModeStrict:
		return ModeStrict, nil
	}
	return "", ErrInvalidParseMode
}
