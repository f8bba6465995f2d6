package unserialize

import (
	"errors"
	"io"
	"math"
	"strconv"
)

// Scalar readers return these unpositioned; the parser attaches the input
// offset when it maps them into the exported error types.
var (
	errEmpty         = errors.New("empty number")
	errOverflow      = errors.New("number overflow")
	errInvalidNumber = errors.New("invalid number")
	errMissingQuotes = errors.New("missing quotes")
	errStringTooLong = errors.New("string too long")
)

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// readUint reads the digits of an unsigned decimal and the delimiter after
// them, consuming both. Lengths and counts keep the 32-bit wire bound: more
// than ten digits or a value past MaxUint32 is an overflow.
func readUint(data []byte, delim byte) (int, []byte, error) {
	var value uint64
	digits := 0

	for idx, c := range data {
		if c == delim {
			switch {
			case digits == 0:
				return 0, nil, errEmpty
			case digits > 10 || value > math.MaxUint32:
				return 0, nil, errOverflow
			}

			return int(value), data[idx+1:], nil
		}

		if !isDigit(c) {
			return 0, nil, errInvalidNumber
		}

		value = value*10 + uint64(c-'0')
		digits++
	}

	return 0, nil, io.ErrUnexpectedEOF
}

// readInt reads a signed decimal and its terminating ';'. Values are 64-bit
// signed: at most 19 digits of magnitude, with both int64 bounds honored
// exactly.
func readInt(data []byte) (int64, []byte, error) {
	if len(data) == 0 {
		return 0, nil, errEmpty
	}

	negative := false
	start := 0
	if data[0] == '-' {
		negative = true
		start = 1
	}

	var magnitude uint64
	digits := 0

	for idx := start; idx < len(data); idx++ {
		c := data[idx]
		if c == ';' {
			switch {
			case digits == 0:
				return 0, nil, errEmpty
			case digits > 19 || magnitude > 1<<63 || (!negative && magnitude == 1<<63):
				return 0, nil, errOverflow
			}

			// magnitude 1<<63 converts to MinInt64, negation keeps it.
			value := int64(magnitude)
			if negative {
				value = -value
			}

			return value, data[idx+1:], nil
		}

		if !isDigit(c) {
			return 0, nil, errInvalidNumber
		}

		magnitude = magnitude*10 + uint64(c-'0')
		digits++
	}

	return 0, nil, io.ErrUnexpectedEOF
}

// scanFloat parses the longest float literal prefix of data and returns the
// value and the input after the literal. Delimiters are left for the caller.
func scanFloat(data []byte) (float64, []byte, error) {
	end := floatPrefix(data)
	if end == 0 {
		return 0, nil, errInvalidNumber
	}

	value, err := strconv.ParseFloat(string(data[:end]), 64)
	if err != nil {
		return 0, nil, errInvalidNumber
	}

	return value, data[end:], nil
}

// floatPrefix returns the length of the longest prefix of data forming a
// float literal: an optional sign, then digits with optional fraction and
// exponent, or one of the case-insensitive specials PHP emits (INF,
// INFINITY, NAN). A dangling exponent marker is not part of the literal.
func floatPrefix(data []byte) int {
	pos := 0
	if pos < len(data) && (data[pos] == '+' || data[pos] == '-') {
		pos++
	}

	for _, special := range []string{"infinity", "inf", "nan"} {
		if foldPrefix(data[pos:], special) {
			return pos + len(special)
		}
	}

	digits := 0
	for pos < len(data) && isDigit(data[pos]) {
		pos++
		digits++
	}

	if pos < len(data) && data[pos] == '.' {
		pos++
		for pos < len(data) && isDigit(data[pos]) {
			pos++
			digits++
		}
	}

	if digits == 0 {
		return 0
	}

	if pos < len(data) && (data[pos] == 'e' || data[pos] == 'E') {
		exp := pos + 1
		if exp < len(data) && (data[exp] == '+' || data[exp] == '-') {
			exp++
		}

		if exp < len(data) && isDigit(data[exp]) {
			for exp < len(data) && isDigit(data[exp]) {
				exp++
			}

			pos = exp
		}
	}

	return pos
}

// foldPrefix reports whether data starts with prefix, ignoring ASCII case.
// prefix must already be lowercase.
func foldPrefix(data []byte, prefix string) bool {
	if len(data) < len(prefix) {
		return false
	}

	for idx := 0; idx < len(prefix); idx++ {
		c := data[idx]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}

		if c != prefix[idx] {
			return false
		}
	}

	return true
}

// readQuoted reads a length-prefixed quoted byte string, LEN:"BYTES". The
// returned view borrows from data. The closing quote is consumed, the
// delimiter after it is not.
func readQuoted(data []byte) (ByteStr, []byte, error) {
	length, rest, err := readUint(data, ':')
	if err != nil {
		return nil, nil, err
	}

	if uint64(len(rest)) < uint64(length)+2 {
		return nil, nil, errStringTooLong
	}

	if rest[0] != '"' || rest[length+1] != '"' {
		return nil, nil, errMissingQuotes
	}

	return ByteStr(rest[1 : length+1]), rest[length+2:], nil
}
