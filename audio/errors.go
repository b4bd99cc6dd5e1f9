package audio

import "fmt"

// DecodeError reports a file that could not be opened or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AllocationError reports an output buffer that cannot be sized.
type AllocationError struct {
	Frames int
	From   int
	To     int
	Err    error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocating output for %d frames (%d Hz -> %d Hz): %v", e.Frames, e.From, e.To, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// ConversionError reports a failure of the format converter itself.
type ConversionError struct {
	From Format
	To   Format
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
