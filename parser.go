package unserialize

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// Parser pulls tokens off a serialized PHP byte stream, one at a time, with
// a single token of lookahead. It is a strictly sequential cursor over the
// input: nothing is validated ahead of the read position, nesting is not
// tracked, and after any error the remaining input is undefined.
//
// Newlines between tokens are skipped; any other byte that does not start a
// token is an [UnexpectedByteError].
type Parser struct {
	data []byte
	pos  int

	lookaheadKind Kind
	lookaheadPos  int
	hasLookahead  bool
}

// NewParser returns a Parser reading data in place. Token payloads borrow
// from data and stay valid for as long as data does.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// NewReaderParser buffers r fully and parses the buffered bytes. Token
// payloads borrow from that internal buffer.
func NewReaderParser(r io.Reader) (*Parser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffer input: %w", err)
	}

	return NewParser(data), nil
}

// Position returns the committed byte offset: every byte before it belongs
// to a fully parsed token. An outstanding [Parser.PeekKind] does not move it.
func (p *Parser) Position() int {
	return p.pos
}

// PeekKind classifies the next token without parsing its payload and without
// moving the committed position. Repeated peeks return the same kind. Clean
// end of input is io.EOF.
func (p *Parser) PeekKind() (Kind, error) {
	if p.hasLookahead {
		return p.lookaheadKind, nil
	}

	kind, next, err := p.readNext()
	if err != nil {
		return 0, err
	}

	p.lookaheadKind = kind
	p.lookaheadPos = next
	p.hasLookahead = true

	return kind, nil
}

// ConsumeLookahead commits a peeked token tag without parsing a payload.
// Only useful for payload-free tokens such as KindEnd; for anything else the
// payload bytes are still in the stream. Without an outstanding peek this is
// a no-op.
func (p *Parser) ConsumeLookahead() {
	if p.hasLookahead {
		p.pos = p.lookaheadPos
		p.hasLookahead = false
	}
}

// NextToken parses the next token and advances the committed position past
// it. At clean end of input it returns io.EOF; truncation inside a token is
// io.ErrUnexpectedEOF.
func (p *Parser) NextToken() (Token, error) {
	var kind Kind
	if p.hasLookahead {
		kind = p.lookaheadKind
		p.pos = p.lookaheadPos
		p.hasLookahead = false
	} else {
		next, nextPos, err := p.readNext()
		if err != nil {
			return Token{}, err
		}

		kind = next
		p.pos = nextPos
	}

	switch kind {
	case KindNull:
		if err := p.expect(';'); err != nil {
			return Token{}, err
		}

		return Token{Kind: KindNull}, nil

	case KindBoolean:
		if err := p.expect(':'); err != nil {
			return Token{}, err
		}

		if len(p.data) == 0 {
			return Token{}, io.ErrUnexpectedEOF
		}

		var value bool
		switch p.data[0] {
		case '0':
		case '1':
			value = true
		default:
			return Token{}, UnexpectedByteError{Found: p.data[0], Position: p.pos}
		}

		p.data = p.data[1:]
		p.pos++

		if err := p.expect(';'); err != nil {
			return Token{}, err
		}

		return Token{Kind: KindBoolean, Bool: value}, nil

	case KindInteger, KindReference:
		if err := p.expect(':'); err != nil {
			return Token{}, err
		}

		value, rest, err := readInt(p.data)
		if err != nil {
			return Token{}, p.scalarError(err)
		}

		p.advanceTo(rest)

		return Token{Kind: kind, Int: value}, nil

	case KindFloat:
		if err := p.expect(':'); err != nil {
			return Token{}, err
		}

		value, rest, err := scanFloat(p.data)
		if err != nil {
			return Token{}, p.scalarError(err)
		}

		p.advanceTo(rest)

		if err := p.expect(';'); err != nil {
			return Token{}, err
		}

		return Token{Kind: KindFloat, Float: value}, nil

	case KindString:
		if err := p.expect(':'); err != nil {
			return Token{}, err
		}

		payload, rest, err := readQuoted(p.data)
		if err != nil {
			return Token{}, p.scalarError(err)
		}

		p.advanceTo(rest)

		if err := p.expect(';'); err != nil {
			return Token{}, err
		}

		return Token{Kind: KindString, Str: payload}, nil

	case KindArray:
		if err := p.expect(':'); err != nil {
			return Token{}, err
		}

		count, rest, err := readUint(p.data, ':')
		if err != nil {
			return Token{}, p.scalarError(err)
		}

		p.advanceTo(rest)

		if err := p.expect('{'); err != nil {
			return Token{}, err
		}

		return Token{Kind: KindArray, Count: count}, nil

	case KindObject:
		if err := p.expect(':'); err != nil {
			return Token{}, err
		}

		class, rest, err := readQuoted(p.data)
		if err != nil {
			return Token{}, p.scalarError(err)
		}

		p.advanceTo(rest)

		if err := p.expect(':'); err != nil {
			return Token{}, err
		}

		count, rest, err := readUint(p.data, ':')
		if err != nil {
			return Token{}, p.scalarError(err)
		}

		p.advanceTo(rest)

		if err := p.expect('{'); err != nil {
			return Token{}, err
		}

		return Token{Kind: KindObject, Class: class, Count: count}, nil

	case KindEnd:
		return Token{Kind: KindEnd}, nil

	default:
		panic("INVARIANT: readNext returned an unknown kind")
	}
}

// ReadToken is NextToken for callers that require a value to be present:
// clean end of input becomes io.ErrUnexpectedEOF.
func (p *Parser) ReadToken() (Token, error) {
	token, err := p.NextToken()
	if errors.Is(err, io.EOF) {
		return Token{}, io.ErrUnexpectedEOF
	}

	return token, err
}

// Tokens iterates the remaining token stream. Iteration ends at clean end of
// input; any other error is yielded once with a zero Token and ends the
// sequence.
func (p *Parser) Tokens() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			token, err := p.NextToken()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(Token{}, err)
				return
			}

			if !yield(token, nil) {
				return
			}
		}
	}
}

// readNext scans to the next tag byte, consuming it and any newlines before
// it, and returns the kind together with the position just past the tag
// byte. The committed position is not touched; an unexpected byte is
// reported at the committed position.
func (p *Parser) readNext() (Kind, int, error) {
	next := p.pos

	for {
		if len(p.data) == 0 {
			return 0, 0, io.EOF
		}

		c := p.data[0]
		p.data = p.data[1:]
		next++

		switch c {
		case 'N', 'b', 'i', 'd', 's', 'a', 'O', 'r', '}':
			return Kind(c), next, nil
		case '\n':
			continue
		default:
			return 0, 0, UnexpectedByteError{Found: c, Position: p.pos}
		}
	}
}

// expect consumes one byte that must equal want.
func (p *Parser) expect(want byte) error {
	if len(p.data) == 0 {
		return io.ErrUnexpectedEOF
	}

	if p.data[0] != want {
		return MismatchByteError{Expected: want, Found: p.data[0], Position: p.pos}
	}

	p.data = p.data[1:]
	p.pos++

	return nil
}

// advanceTo commits everything a scalar reader consumed.
func (p *Parser) advanceTo(rest []byte) {
	p.pos += len(p.data) - len(rest)
	p.data = rest
}

// scalarError attaches the committed offset to a scalar reader failure.
func (p *Parser) scalarError(err error) error {
	switch {
	case errors.Is(err, errEmpty):
		return EmptyError{Position: p.pos}
	case errors.Is(err, errOverflow):
		return OverflowError{Position: p.pos}
	case errors.Is(err, errInvalidNumber):
		return InvalidNumberError{Position: p.pos}
	case errors.Is(err, errMissingQuotes):
		return MissingQuotesError{Position: p.pos}
	case errors.Is(err, errStringTooLong):
		return StringTooLongError{Position: p.pos}
	}

	return err
}
