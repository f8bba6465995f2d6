package unserialize

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a byte string is requested as text but does
// not hold valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 sequence")

// Kind classifies a [Token]. Its value is the tag byte that introduces the
// token on the wire.
type Kind byte

const (
	KindNull      Kind = 'N'
	KindBoolean   Kind = 'b'
	KindInteger   Kind = 'i'
	KindFloat     Kind = 'd'
	KindString    Kind = 's'
	KindArray     Kind = 'a'
	KindObject    Kind = 'O'
	KindReference Kind = 'r'

	// KindEnd is the closing brace terminating an Array or Object body.
	KindEnd Kind = '}'
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	case KindReference:
		return "Reference"
	case KindEnd:
		return "End"
	}

	return fmt.Sprintf("Kind(0x%02x)", byte(k))
}

// Token is one fully parsed element of the serialized stream. Only the fields
// matching the Kind are populated: Bool for Boolean, Int for Integer and
// Reference, Float for Float, Str for String, Count (and Class for Object)
// for the container kinds. Null and End carry no payload.
//
// Count is the element or property count the container declares. It is
// advisory: the wire format repeats the information in the token stream
// itself, and the parser does not verify it. Walk containers until you hit a
// KindEnd token instead of trusting Count.
type Token struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   ByteStr
	Class ByteStr
	Count int
}

func (t Token) String() string {
	switch t.Kind {
	case KindNull:
		return "Null"
	case KindBoolean:
		return fmt.Sprintf("Boolean(%t)", t.Bool)
	case KindInteger:
		return fmt.Sprintf("Integer(%d)", t.Int)
	case KindFloat:
		return fmt.Sprintf("Float(%g)", t.Float)
	case KindString:
		return fmt.Sprintf("String(%q)", []byte(t.Str))
	case KindArray:
		return fmt.Sprintf("Array(%d)", t.Count)
	case KindObject:
		return fmt.Sprintf("Object(%q, %d)", []byte(t.Class), t.Count)
	case KindReference:
		return fmt.Sprintf("Reference(%d)", t.Int)
	case KindEnd:
		return "End"
	}

	return t.Kind.String()
}

// ByteStr is a borrowed view of string payload bytes within the input buffer.
// It stays valid as long as the input passed to the parser does. The bytes
// are raw: PHP strings are length-prefixed binary and need not be UTF-8.
type ByteStr []byte

// Bytes returns the raw payload bytes.
func (s ByteStr) Bytes() []byte { return s }

// Text returns the payload as a string after UTF-8 validation. It fails with
// [ErrInvalidUTF8] if the payload is not valid UTF-8.
func (s ByteStr) Text() (string, error) {
	if !utf8.Valid(s) {
		return "", ErrInvalidUTF8
	}

	return string(s), nil
}
