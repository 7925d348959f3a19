package cenc

import "fmt"

// MalformedBoxError reports a declared length that runs past the end of the
// buffer being decoded.
type MalformedBoxError struct {
	Field     string
	Offset    int
	Need      uint64
	Remaining int
}

func (e *MalformedBoxError) Error() string {
	return fmt.Sprintf("malformed box: %s needs %d bytes at offset %d, %d remaining",
		e.Field, e.Need, e.Offset, e.Remaining)
}

// CheckLength returns a *MalformedBoxError unless buf holds n bytes at off.
func CheckLength(field string, buf []byte, off int, n uint64) error {
	remaining := len(buf) - off
	if off < 0 || remaining < 0 {
		remaining = 0
	}
	if off < 0 || off > len(buf) || n > uint64(remaining) {
		return &MalformedBoxError{Field: field, Offset: off, Need: n, Remaining: remaining}
	}
	return nil
}

// DecodingError reports textual input (hex, base64, GUID) that could not be
// turned into bytes.
type DecodingError struct {
	Kind  string
	Input string
	Err   error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode %s %q: %v", e.Kind, e.Input, e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}
