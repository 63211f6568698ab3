package codec

import "fmt"

type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q", string(e.Format))
}

// DecodeError reports malformed input. Position is a human readable hint
// such as "line 3" or "row 12".
type DecodeError struct {
	Format   Format
	Position string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Position == "" {
		return fmt.Sprintf("failed to decode %s: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("failed to decode %s at %s: %v", e.Format, e.Position, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
