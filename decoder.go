package unserialize

import (
	"errors"
	"fmt"
	"io"
)

// Decoder reads typed values from a [Parser]. Each Decode method pulls
// exactly the tokens one value of the requested shape needs, so calls can be
// freely interleaved with manual [Parser] reads and with [UnmarshalDecode]
// on the same cursor.
type Decoder struct {
	p *Parser
}

// NewDecoder returns a Decoder over data. Payloads borrow from data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{p: NewParser(data)}
}

// NewReaderDecoder buffers r fully and decodes the buffered bytes.
func NewReaderDecoder(r io.Reader) (*Decoder, error) {
	parser, err := NewReaderParser(r)
	if err != nil {
		return nil, err
	}

	return &Decoder{p: parser}, nil
}

// NewParserDecoder returns a Decoder continuing on an existing cursor.
func NewParserDecoder(p *Parser) *Decoder {
	return &Decoder{p: p}
}

// Parser returns the underlying cursor, positioned after the last value the
// Decoder consumed.
func (d *Decoder) Parser() *Parser {
	return d.p
}

// Visitor receives one decoded value during content-driven dispatch. The
// serialized data is self-describing, so [Decoder.DecodeAny] can decode
// without knowing the target shape and calls the method matching the token
// it observed. Reference tokens arrive as their raw ordinal via VisitInt.
type Visitor interface {
	VisitNull() error
	VisitBool(value bool) error
	VisitInt(value int64) error
	VisitFloat(value float64) error
	VisitBytes(value ByteStr) error
	VisitSeq(seq *SeqAccess) error
	VisitMap(m *MapAccess) error
}

// DecodeAny decodes the next value by its observed kind and hands it to the
// visitor. Arrays dispatch as flat sequences with keys and values
// alternating, Objects as maps.
func (d *Decoder) DecodeAny(visitor Visitor) error {
	token, err := d.p.ReadToken()
	if err != nil {
		return err
	}

	switch token.Kind {
	case KindNull:
		return visitor.VisitNull()
	case KindBoolean:
		return visitor.VisitBool(token.Bool)
	case KindInteger, KindReference:
		return visitor.VisitInt(token.Int)
	case KindFloat:
		return visitor.VisitFloat(token.Float)
	case KindString:
		return visitor.VisitBytes(token.Str)
	case KindArray:
		return visitor.VisitSeq(&SeqAccess{d: d})
	case KindObject:
		return visitor.VisitMap(&MapAccess{d: d, class: token.Class, hasClass: true})
	default:
		return DecodeError{Message: "unexpected token", Position: d.p.Position()}
	}
}

// DecodeNull decodes a Null value.
func (d *Decoder) DecodeNull() error {
	token, err := d.p.ReadToken()
	if err != nil {
		return err
	}

	if token.Kind != KindNull {
		return d.mismatch("null", token)
	}

	return nil
}

// DecodeBool decodes a Boolean value.
func (d *Decoder) DecodeBool() (bool, error) {
	token, err := d.p.ReadToken()
	if err != nil {
		return false, err
	}

	if token.Kind != KindBoolean {
		return false, d.mismatch("boolean", token)
	}

	return token.Bool, nil
}

// DecodeInt decodes an Integer. A Reference token decodes as its raw
// ordinal.
func (d *Decoder) DecodeInt() (int64, error) {
	token, err := d.p.ReadToken()
	if err != nil {
		return 0, err
	}

	switch token.Kind {
	case KindInteger, KindReference:
		return token.Int, nil
	}

	return 0, d.mismatch("integer", token)
}

// DecodeFloat decodes a Float; Integer and Reference values widen.
func (d *Decoder) DecodeFloat() (float64, error) {
	token, err := d.p.ReadToken()
	if err != nil {
		return 0, err
	}

	switch token.Kind {
	case KindFloat:
		return token.Float, nil
	case KindInteger, KindReference:
		return float64(token.Int), nil
	}

	return 0, d.mismatch("float", token)
}

// DecodeBytes decodes a String as its raw byte payload without UTF-8
// validation.
func (d *Decoder) DecodeBytes() (ByteStr, error) {
	token, err := d.p.ReadToken()
	if err != nil {
		return nil, err
	}

	if token.Kind != KindString {
		return nil, d.mismatch("string", token)
	}

	return token.Str, nil
}

// DecodeString decodes a String as UTF-8 text.
func (d *Decoder) DecodeString() (string, error) {
	payload, err := d.DecodeBytes()
	if err != nil {
		return "", err
	}

	text, err := payload.Text()
	if err != nil {
		return "", UTF8Error{Position: d.p.Position()}
	}

	return text, nil
}

// DecodePropertyName decodes a String as an object property name: the
// payload is demangled and only the clean name is returned. Decode the raw
// bytes and use [ByteStr.Property] to also observe the visibility.
func (d *Decoder) DecodePropertyName() (string, error) {
	payload, err := d.DecodeBytes()
	if err != nil {
		return "", err
	}

	name, _, err := payload.Property()
	if err != nil {
		return "", UTF8Error{Position: d.p.Position()}
	}

	return name, nil
}

// DecodeOption reports whether a value is present. A Null token is consumed
// and reported as absent; any other token stays in the stream for the
// caller to decode.
func (d *Decoder) DecodeOption() (bool, error) {
	kind, err := d.peekValue()
	if err != nil {
		return false, err
	}

	if kind == KindNull {
		if _, err := d.p.NextToken(); err != nil {
			return false, err
		}

		return false, nil
	}

	return true, nil
}

// DecodeSeq decodes the head of an Array and returns the flat sequence of
// its elements.
func (d *Decoder) DecodeSeq() (*SeqAccess, error) {
	token, err := d.p.ReadToken()
	if err != nil {
		return nil, err
	}

	if token.Kind != KindArray {
		return nil, DecodeError{Message: "expected array", Position: d.p.Position()}
	}

	return &SeqAccess{d: d}, nil
}

// DecodeTuple decodes the head of an Array declaring exactly length
// elements. This is the one place the advisory count is enforced: a fixed
// arity target would otherwise mis-align on the flat element stream.
func (d *Decoder) DecodeTuple(length int) (*SeqAccess, error) {
	token, err := d.p.ReadToken()
	if err != nil {
		return nil, err
	}

	if token.Kind != KindArray {
		return nil, DecodeError{Message: "expected array", Position: d.p.Position()}
	}

	if token.Count != length {
		return nil, DecodeError{Message: "array length mismatch", Position: d.p.Position()}
	}

	return &SeqAccess{d: d}, nil
}

// DecodeMap decodes the head of an Array or Object and returns its entries
// as key/value pairs. The class name of an Object is available through
// [MapAccess.Class].
func (d *Decoder) DecodeMap() (*MapAccess, error) {
	token, err := d.p.ReadToken()
	if err != nil {
		return nil, err
	}

	switch token.Kind {
	case KindArray:
		return &MapAccess{d: d}, nil
	case KindObject:
		return &MapAccess{d: d, class: token.Class, hasClass: true}, nil
	}

	return nil, DecodeError{Message: "expected array or object", Position: d.p.Position()}
}

// DecodeEnum decodes a variant tag and returns its name. The next token must
// be a String holding the tag; a unit variant is complete after this call,
// while payload-carrying variants decode their payload with further Decode
// calls. Kinds that can never start a variant are rejected without being
// consumed.
func (d *Decoder) DecodeEnum() (string, error) {
	kind, err := d.peekValue()
	if err != nil {
		return "", err
	}

	switch kind {
	case KindString, KindInteger, KindBoolean, KindArray:
	default:
		return "", DecodeError{Message: "unexpected token for enum variant", Position: d.p.Position()}
	}

	token, err := d.p.ReadToken()
	if err != nil {
		return "", err
	}

	if token.Kind != KindString {
		return "", DecodeError{Message: "expected string for enum variant", Position: d.p.Position()}
	}

	name, err := token.Str.Text()
	if err != nil {
		return "", UTF8Error{Position: d.p.Position()}
	}

	return name, nil
}

// DecodeIgnored consumes the next value completely, nested containers
// included, discarding everything.
func (d *Decoder) DecodeIgnored() error {
	return d.DecodeAny(ignoreVisitor{})
}

func (d *Decoder) mismatch(want string, token Token) error {
	return DecodeError{
		Message:  fmt.Sprintf("expected %s, got %s", want, token.Kind),
		Position: d.p.Position(),
	}
}

// peekValue peeks the next kind, requiring one to be present.
func (d *Decoder) peekValue() (Kind, error) {
	kind, err := d.p.PeekKind()
	if errors.Is(err, io.EOF) {
		return 0, io.ErrUnexpectedEOF
	}

	return kind, err
}

// more peeks for the End closing the current container, consuming it when
// found.
func (d *Decoder) more() (bool, error) {
	kind, err := d.peekValue()
	if err != nil {
		return false, err
	}

	if kind == KindEnd {
		d.p.ConsumeLookahead()
		return false, nil
	}

	return true, nil
}

// SeqAccess iterates the elements of an Array decoded as a flat sequence.
// PHP arrays serialize keys and values as alternating elements, so a flat
// sequence over "a:2:{i:0;i:1;}" yields 0 and 1.
type SeqAccess struct {
	d *Decoder
}

// More reports whether another element follows, consuming the closing End
// once the sequence is done.
func (a *SeqAccess) More() (bool, error) {
	return a.d.more()
}

// Decoder returns the Decoder to pull the next element from.
func (a *SeqAccess) Decoder() *Decoder {
	return a.d
}

// MapAccess iterates the entries of an Array or Object as key/value pairs.
type MapAccess struct {
	d        *Decoder
	class    ByteStr
	hasClass bool
}

// More reports whether another entry follows, consuming the closing End once
// the map is done. After More reports true, decode one key and one value.
func (m *MapAccess) More() (bool, error) {
	return m.d.more()
}

// Class returns the declaring class name when the entries came from an
// Object.
func (m *MapAccess) Class() (ByteStr, bool) {
	return m.class, m.hasClass
}

// Decoder returns the Decoder to pull keys and values from.
func (m *MapAccess) Decoder() *Decoder {
	return m.d
}

type ignoreVisitor struct{}

func (ignoreVisitor) VisitNull() error         { return nil }
func (ignoreVisitor) VisitBool(bool) error     { return nil }
func (ignoreVisitor) VisitInt(int64) error     { return nil }
func (ignoreVisitor) VisitFloat(float64) error { return nil }
func (ignoreVisitor) VisitBytes(ByteStr) error { return nil }

func (ignoreVisitor) VisitSeq(seq *SeqAccess) error {
	for {
		ok, err := seq.More()
		if err != nil || !ok {
			return err
		}

		if err := seq.Decoder().DecodeIgnored(); err != nil {
			return err
		}
	}
}

func (ignoreVisitor) VisitMap(m *MapAccess) error {
	for {
		ok, err := m.More()
		if err != nil || !ok {
			return err
		}

		if err := m.Decoder().DecodeIgnored(); err != nil {
			return err
		}

		if err := m.Decoder().DecodeIgnored(); err != nil {
			return err
		}
	}
}
