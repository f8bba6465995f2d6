package unserialize

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func validateTokens(t *testing.T, input string, expected ...Token) {
	t.Helper()

	parser := NewParser([]byte(input))

	for _, want := range expected {
		token, err := parser.NextToken()
		require.NoError(t, err)
		require.Equal(t, token, want)
	}

	_, err := parser.NextToken()
	require.ErrorIs(t, err, io.EOF)
}

func TestParserTokens(t *testing.T) {
	validateTokens(t, "N;", Token{Kind: KindNull})

	validateTokens(t, "b:0;b:1;",
		Token{Kind: KindBoolean},
		Token{Kind: KindBoolean, Bool: true})

	validateTokens(t, "i:0;i:-1;i:123456;",
		Token{Kind: KindInteger},
		Token{Kind: KindInteger, Int: -1},
		Token{Kind: KindInteger, Int: 123456})

	validateTokens(t, "i:9223372036854775807;", Token{Kind: KindInteger, Int: math.MaxInt64})
	validateTokens(t, "i:-9223372036854775808;", Token{Kind: KindInteger, Int: math.MinInt64})

	validateTokens(t, "d:3.14;d:-0.5;d:1.0E+15;d:2e3;",
		Token{Kind: KindFloat, Float: 3.14},
		Token{Kind: KindFloat, Float: -0.5},
		Token{Kind: KindFloat, Float: 1.0e15},
		Token{Kind: KindFloat, Float: 2000})

	validateTokens(t, `s:5:"hello";s:0:"";`,
		Token{Kind: KindString, Str: ByteStr("hello")},
		Token{Kind: KindString, Str: ByteStr("")})

	// payload length counts bytes, quotes inside do not terminate
	validateTokens(t, `s:5:"a"b"c";`, Token{Kind: KindString, Str: ByteStr(`a"b"c`)})
	validateTokens(t, `s:6:"héllo";`, Token{Kind: KindString, Str: ByteStr("héllo")})

	validateTokens(t, "a:2:{i:0;i:1;}",
		Token{Kind: KindArray, Count: 2},
		Token{Kind: KindInteger},
		Token{Kind: KindInteger, Int: 1},
		Token{Kind: KindEnd})

	// the declared count is advisory and not checked against the content
	validateTokens(t, "a:99:{}",
		Token{Kind: KindArray, Count: 99},
		Token{Kind: KindEnd})

	validateTokens(t, `O:8:"stdClass":1:{s:3:"foo";b:1;}`,
		Token{Kind: KindObject, Class: ByteStr("stdClass"), Count: 1},
		Token{Kind: KindString, Str: ByteStr("foo")},
		Token{Kind: KindBoolean, Bool: true},
		Token{Kind: KindEnd})

	validateTokens(t, "r:1;", Token{Kind: KindReference, Int: 1})

	validateTokens(t, "i:1;\ni:2;",
		Token{Kind: KindInteger, Int: 1},
		Token{Kind: KindInteger, Int: 2})

	validateTokens(t, "\n\nN;", Token{Kind: KindNull})
}

func TestParserPositions(t *testing.T) {
	parser := NewParser([]byte(`i:42;s:5:"hello";`))
	require.Equal(t, parser.Position(), 0)

	token, err := parser.NextToken()
	require.NoError(t, err)
	require.Equal(t, token, Token{Kind: KindInteger, Int: 42})
	require.Equal(t, parser.Position(), 5)

	token, err = parser.NextToken()
	require.NoError(t, err)
	require.Equal(t, token, Token{Kind: KindString, Str: ByteStr("hello")})
	require.Equal(t, parser.Position(), 17)

	_, err = parser.NextToken()
	require.ErrorIs(t, err, io.EOF)
}

func TestParserPositionsNested(t *testing.T) {
	parser := NewParser([]byte(`a:1:{i:0;s:5:"hello";}`))

	token, err := parser.NextToken()
	require.NoError(t, err)
	require.Equal(t, token, Token{Kind: KindArray, Count: 1})
	require.Equal(t, parser.Position(), 5)

	token, err = parser.NextToken()
	require.NoError(t, err)
	require.Equal(t, token, Token{Kind: KindInteger})
	require.Equal(t, parser.Position(), 9)

	token, err = parser.NextToken()
	require.NoError(t, err)
	require.Equal(t, token, Token{Kind: KindString, Str: ByteStr("hello")})
	require.Equal(t, parser.Position(), 21)

	token, err = parser.NextToken()
	require.NoError(t, err)
	require.Equal(t, token, Token{Kind: KindEnd})
	require.Equal(t, parser.Position(), 22)

	_, err = parser.NextToken()
	require.ErrorIs(t, err, io.EOF)
}

func TestParserPeekDoesNotCommit(t *testing.T) {
	parser := NewParser([]byte("N;"))

	for range 3 {
		kind, err := parser.PeekKind()
		require.NoError(t, err)
		require.Equal(t, kind, KindNull)
		require.Equal(t, parser.Position(), 0)
	}

	token, err := parser.NextToken()
	require.NoError(t, err)
	require.Equal(t, token, Token{Kind: KindNull})
	require.Equal(t, parser.Position(), 2)
}

func TestParserConsumeLookahead(t *testing.T) {
	parser := NewParser([]byte("N;"))

	kind, err := parser.PeekKind()
	require.NoError(t, err)
	require.Equal(t, kind, KindNull)

	// commits the tag byte only, the payload stays in the stream
	parser.ConsumeLookahead()
	require.Equal(t, parser.Position(), 1)
}

func TestParserErrors(t *testing.T) {
	cases := []struct {
		input string
		err   error
	}{
		{input: "x", err: UnexpectedByteError{Found: 'x', Position: 0}},
		{input: "N", err: io.ErrUnexpectedEOF},
		{input: "N:", err: MismatchByteError{Expected: ';', Found: ':', Position: 1}},

		{input: "b:2;", err: UnexpectedByteError{Found: '2', Position: 2}},
		{input: "b:text;", err: UnexpectedByteError{Found: 't', Position: 2}},
		{input: "b:1", err: io.ErrUnexpectedEOF},

		{input: "i:abc;", err: InvalidNumberError{Position: 2}},
		{input: "i:--1;", err: InvalidNumberError{Position: 2}},
		{input: "i:1a;", err: InvalidNumberError{Position: 2}},
		{input: "i: 42;", err: InvalidNumberError{Position: 2}},
		{input: "i:+42;", err: InvalidNumberError{Position: 2}},
		{input: "i:;", err: EmptyError{Position: 2}},
		{input: "i:-;", err: EmptyError{Position: 2}},
		{input: "i:", err: EmptyError{Position: 2}},
		{input: "i:42", err: io.ErrUnexpectedEOF},
		{input: "i:99999999999999999999;", err: OverflowError{Position: 2}},
		{input: "i:9223372036854775808;", err: OverflowError{Position: 2}},
		{input: "i:-9223372036854775809;", err: OverflowError{Position: 2}},

		{input: "d:invalid;", err: InvalidNumberError{Position: 2}},
		{input: "d:;", err: InvalidNumberError{Position: 2}},
		{input: "d:--1.0;", err: InvalidNumberError{Position: 2}},
		{input: "d:3,14;", err: MismatchByteError{Expected: ';', Found: ',', Position: 3}},
		{input: "d:3.14.15;", err: MismatchByteError{Expected: ';', Found: '.', Position: 6}},
		{input: "d:1e;", err: MismatchByteError{Expected: ';', Found: 'e', Position: 3}},
		{input: "d:3.14", err: io.ErrUnexpectedEOF},

		{input: `s:abc:"x";`, err: InvalidNumberError{Position: 2}},
		{input: `s:-1:"x";`, err: InvalidNumberError{Position: 2}},
		{input: `s:9999999999:"hello";`, err: OverflowError{Position: 2}},
		{input: `s:99999999999:"hello";`, err: OverflowError{Position: 2}},
		{input: `s:10:"hello";`, err: StringTooLongError{Position: 2}},
		{input: `s:5:"hello`, err: StringTooLongError{Position: 2}},
		{input: `s:5:hello;`, err: StringTooLongError{Position: 2}},
		{input: `s:5:'hello';`, err: MissingQuotesError{Position: 2}},
		{input: `s:4:"hello";`, err: MissingQuotesError{Position: 2}},

		{input: "a:3:i", err: MismatchByteError{Expected: '{', Found: 'i', Position: 4}},
		{input: "a:xx:{}", err: InvalidNumberError{Position: 2}},
		{input: "a::{}", err: EmptyError{Position: 2}},
		{input: `O:3:"Foo":;}`, err: InvalidNumberError{Position: 10}},
		{input: "r:;", err: EmptyError{Position: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			_, err := NewParser([]byte(tc.input)).NextToken()
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParserFloatSpecials(t *testing.T) {
	parser := NewParser([]byte("d:INF;d:-INF;d:NAN;d:inf;"))

	token, err := parser.NextToken()
	require.NoError(t, err)
	require.True(t, math.IsInf(token.Float, 1))

	token, err = parser.NextToken()
	require.NoError(t, err)
	require.True(t, math.IsInf(token.Float, -1))

	token, err = parser.NextToken()
	require.NoError(t, err)
	require.True(t, math.IsNaN(token.Float))

	token, err = parser.NextToken()
	require.NoError(t, err)
	require.True(t, math.IsInf(token.Float, 1))

	_, err = parser.NextToken()
	require.ErrorIs(t, err, io.EOF)
}

func TestParserReadToken(t *testing.T) {
	_, err := NewParser(nil).NextToken()
	require.ErrorIs(t, err, io.EOF)

	_, err = NewParser(nil).ReadToken()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestNewReaderParser(t *testing.T) {
	parser, err := NewReaderParser(strings.NewReader("i:42;"))
	require.NoError(t, err)

	token, err := parser.NextToken()
	require.NoError(t, err)
	require.Equal(t, token, Token{Kind: KindInteger, Int: 42})
}

func TestParserTokensIterator(t *testing.T) {
	var tokens []Token
	for token, err := range NewParser([]byte("i:1;i:2;N;")).Tokens() {
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	require.Equal(t, tokens, []Token{
		{Kind: KindInteger, Int: 1},
		{Kind: KindInteger, Int: 2},
		{Kind: KindNull},
	})

	count := 0
	var lastErr error
	for _, err := range NewParser([]byte("i:1;x")).Tokens() {
		if err != nil {
			lastErr = err
			break
		}

		count++
	}

	require.Equal(t, count, 1)
	require.ErrorIs(t, lastErr, UnexpectedByteError{Found: 'x', Position: 4})
}

func TestTokenString(t *testing.T) {
	require.Equal(t, Token{Kind: KindInteger, Int: 42}.String(), "Integer(42)")
	require.Equal(t, Token{Kind: KindBoolean, Bool: true}.String(), "Boolean(true)")
	require.Equal(t, Token{Kind: KindString, Str: ByteStr("hi")}.String(), `String("hi")`)
	require.Equal(t, Token{Kind: KindObject, Class: ByteStr("User"), Count: 2}.String(), `Object("User", 2)`)
	require.Equal(t, Token{Kind: KindEnd}.String(), "End")
	require.Equal(t, Kind('z').String(), "Kind(0x7a)")
}
