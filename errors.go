package unserialize

import (
	"errors"
	"fmt"
)

// Errors carrying a byte offset implement this to make the offset reachable
// through [ErrorPosition] without callers naming every concrete type.
type positionedError interface {
	errorPosition() int
}

// ErrorPosition extracts the input byte offset an error was detected at.
// It reports false for errors that carry no position, such as [io.EOF],
// [io.ErrUnexpectedEOF] or [ErrInvalidUTF8].
func ErrorPosition(err error) (int, bool) {
	var positioned positionedError
	if errors.As(err, &positioned) {
		return positioned.errorPosition(), true
	}

	return 0, false
}

// MismatchByteError reports that the input held a different byte than the
// grammar demands at this point, e.g. a missing ':' or ';' delimiter.
type MismatchByteError struct {
	Expected byte
	Found    byte
	Position int
}

func (e MismatchByteError) Error() string {
	return fmt.Sprintf("expected byte %s, found %s at position %d",
		formatByte(e.Expected), formatByte(e.Found), e.Position)
}

func (e MismatchByteError) errorPosition() int { return e.Position }

// UnexpectedByteError reports a byte that does not start any token, or an
// invalid Boolean payload byte.
type UnexpectedByteError struct {
	Found    byte
	Position int
}

func (e UnexpectedByteError) Error() string {
	return fmt.Sprintf("unexpected byte %s at position %d", formatByte(e.Found), e.Position)
}

func (e UnexpectedByteError) errorPosition() int { return e.Position }

// EmptyError reports a numeric field with no digits at all.
type EmptyError struct {
	Position int
}

func (e EmptyError) Error() string {
	return fmt.Sprintf("unable to decode empty data at position %d", e.Position)
}

func (e EmptyError) errorPosition() int { return e.Position }

// MissingQuotesError reports string payload bytes not framed by '"' quotes.
type MissingQuotesError struct {
	Position int
}

func (e MissingQuotesError) Error() string {
	return fmt.Sprintf("missing quotes in string at position %d", e.Position)
}

func (e MissingQuotesError) errorPosition() int { return e.Position }

// StringTooLongError reports a declared string length that reaches past the
// end of the available input.
type StringTooLongError struct {
	Position int
}

func (e StringTooLongError) Error() string {
	return fmt.Sprintf("string is too long at position %d", e.Position)
}

func (e StringTooLongError) errorPosition() int { return e.Position }

// InvalidNumberError reports a malformed numeric literal.
type InvalidNumberError struct {
	Position int
}

func (e InvalidNumberError) Error() string {
	return fmt.Sprintf("invalid number at position %d", e.Position)
}

func (e InvalidNumberError) errorPosition() int { return e.Position }

// OverflowError reports a numeric literal whose digit count or magnitude
// exceeds the supported range.
type OverflowError struct {
	Position int
}

func (e OverflowError) Error() string {
	return fmt.Sprintf("overflow at position %d", e.Position)
}

func (e OverflowError) errorPosition() int { return e.Position }

// DecodeError reports a token stream that is well formed but does not match
// the shape the caller asked the [Decoder] for.
type DecodeError struct {
	Message  string
	Position int
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Position)
}

func (e DecodeError) errorPosition() int { return e.Position }

// UTF8Error reports invalid UTF-8 in a payload that was requested as text.
// It unwraps to [ErrInvalidUTF8].
type UTF8Error struct {
	Position int
}

func (e UTF8Error) Error() string {
	return fmt.Sprintf("invalid UTF-8 sequence at position %d", e.Position)
}

func (e UTF8Error) errorPosition() int { return e.Position }

func (e UTF8Error) Unwrap() error { return ErrInvalidUTF8 }

// Printable ASCII letters and digits read better as characters, anything
// else as hex.
func formatByte(b byte) string {
	if b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' {
		return fmt.Sprintf("'%c'", b)
	}

	return fmt.Sprintf("0x%02x", b)
}
