package unserialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is one decoded PHP value as a self-describing tree. Kind selects the
// populated payload fields, mirroring [Token]: Entries holds Array and
// Object contents as ordered key/value pairs, and Class names the declaring
// class of an Object. Reference values keep their own kind and carry the
// raw ordinal in Int.
//
// Str and Class are borrowed views into the decoder input.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Float   float64
	Str     ByteStr
	Class   ByteStr
	Entries []ValueEntry
}

// ValueEntry is one key/value pair of an Array or Object.
type ValueEntry struct {
	Key   Value
	Value Value
}

// DecodeValue decodes the next value into a [Value] tree, containers
// included. Unlike the flat [Visitor] dispatch, Array entries stay paired.
func (d *Decoder) DecodeValue() (Value, error) {
	token, err := d.p.ReadToken()
	if err != nil {
		return Value{}, err
	}

	switch token.Kind {
	case KindNull:
		return Value{Kind: KindNull}, nil
	case KindBoolean:
		return Value{Kind: KindBoolean, Bool: token.Bool}, nil
	case KindInteger:
		return Value{Kind: KindInteger, Int: token.Int}, nil
	case KindFloat:
		return Value{Kind: KindFloat, Float: token.Float}, nil
	case KindString:
		return Value{Kind: KindString, Str: token.Str}, nil
	case KindReference:
		return Value{Kind: KindReference, Int: token.Int}, nil

	case KindArray, KindObject:
		value := Value{Kind: token.Kind, Class: token.Class}

		for {
			ok, err := d.more()
			if err != nil {
				return Value{}, err
			}

			if !ok {
				return value, nil
			}

			key, err := d.DecodeValue()
			if err != nil {
				return Value{}, err
			}

			entryValue, err := d.DecodeValue()
			if err != nil {
				return Value{}, err
			}

			value.Entries = append(value.Entries, ValueEntry{Key: key, Value: entryValue})
		}

	default:
		return Value{}, DecodeError{Message: "unexpected token", Position: d.p.Position()}
	}
}

// IsList reports whether the value is a PHP list: an Array keyed by the
// integers 0..n-1 in order.
func (v Value) IsList() bool {
	if v.Kind != KindArray {
		return false
	}

	for idx, entry := range v.Entries {
		if entry.Key.Kind != KindInteger || entry.Key.Int != int64(idx) {
			return false
		}
	}

	return true
}

// MarshalJSON renders the tree as JSON. Lists become JSON arrays; other
// Arrays and all Objects become JSON objects with their keys stringified.
// The class name of an Object is not part of the output. Non-finite floats
// fail, as they do in [json.Marshal].
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.appendJSON(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
		return nil

	case KindBoolean:
		buf.WriteString(strconv.FormatBool(v.Bool))
		return nil

	case KindInteger, KindReference:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		return nil

	case KindFloat:
		encoded, err := json.Marshal(v.Float)
		if err != nil {
			return err
		}

		buf.Write(encoded)
		return nil

	case KindString:
		encoded, err := json.Marshal(string(v.Str))
		if err != nil {
			return err
		}

		buf.Write(encoded)
		return nil

	case KindArray, KindObject:
		if v.IsList() {
			buf.WriteByte('[')

			for idx, entry := range v.Entries {
				if idx > 0 {
					buf.WriteByte(',')
				}

				if err := entry.Value.appendJSON(buf); err != nil {
					return err
				}
			}

			buf.WriteByte(']')
			return nil
		}

		buf.WriteByte('{')

		for idx, entry := range v.Entries {
			if idx > 0 {
				buf.WriteByte(',')
			}

			if err := entry.Key.appendJSONKey(buf); err != nil {
				return err
			}

			buf.WriteByte(':')

			if err := entry.Value.appendJSON(buf); err != nil {
				return err
			}
		}

		buf.WriteByte('}')
		return nil
	}

	return fmt.Errorf("cannot encode %s value as JSON", v.Kind)
}

func (v Value) appendJSONKey(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindInteger, KindReference:
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		buf.WriteByte('"')
		return nil

	case KindString:
		encoded, err := json.Marshal(string(v.Str))
		if err != nil {
			return err
		}

		buf.Write(encoded)
		return nil
	}

	return fmt.Errorf("cannot encode %s key as JSON", v.Kind)
}
