package unserialize

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"golang.org/x/exp/constraints"
	"math"
	"reflect"
	"strconv"
	"sync"
	"unsafe"
)

var ErrNoValue = errors.New("no value")

type NotSupportedError struct {
	Type reflect.Type
}

func (n NotSupportedError) Error() string {
	return fmt.Sprintf("type %q is not supported", n.Type)
}

// Unmarshal decodes serialized PHP data into the value target points to,
// using the default Unmarshaler.
func Unmarshal(data []byte, target any) error {
	return unm.Unmarshal(data, target)
}

// UnmarshalNew decodes data into a new value of type T.
func UnmarshalNew[T any](data []byte) (T, error) {
	return UnmarshalNewWith[T](&unm, data)
}

// UnmarshalNewWith decodes data into a new value of type T using u.
func UnmarshalNewWith[T any](u *Unmarshaler, data []byte) (T, error) {
	var target T
	err := u.Unmarshal(data, &target)
	return target, err
}

// UnmarshalDecode decodes exactly one value from d into the value target
// points to, leaving the cursor just after that value.
func UnmarshalDecode(d *Decoder, target any) error {
	return unm.UnmarshalDecode(d, target)
}

// A setter decodes the next value from the Decoder into the reflect.Value
type setter func(*Decoder, reflect.Value) error

// Types whose setter is currently being built, for cycle detection
type typeSet map[reflect.Type]struct{}

var (
	tyTextUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()
	tyValue           = reflect.TypeFor[Value]()
	tyByte            = reflect.TypeFor[byte]()
)

// The default Unmarshaler instance.
var unm Unmarshaler

// Unmarshaler can be used to customize unmarshalling. The zero value matches
// [NewUnmarshaler] and an instance is safe for concurrent use.
type Unmarshaler struct {
	// the struct tag that is used
	structTag string

	// Cache for setters, indexed by reflect.Type
	setterCache sync.Map

	// Require values for all struct fields. Set to true to fail with
	// ErrNoValue if the data holds no entry for a field.
	requireValues bool
}

func NewUnmarshaler() *Unmarshaler {
	return &Unmarshaler{
		structTag: "php",
	}
}

func (u *Unmarshaler) WithTag(structTag string) *Unmarshaler {
	if u.structTag == structTag {
		return u
	}

	return &Unmarshaler{
		structTag:     structTag,
		requireValues: u.requireValues,
	}
}

func (u *Unmarshaler) RequireValues() *Unmarshaler {
	if u.requireValues {
		return u
	}

	return &Unmarshaler{
		structTag:     u.structTag,
		requireValues: true,
	}
}

func (u *Unmarshaler) Unmarshal(data []byte, target any) error {
	return u.UnmarshalDecode(NewDecoder(data), target)
}

func (u *Unmarshaler) UnmarshalDecode(d *Decoder, target any) error {
	targetValue := reflect.ValueOf(target).Elem()

	setter, err := u.setterOf(typeSet{}, targetValue.Type())
	if err != nil {
		return err
	}

	return setter(d, targetValue)
}

func (u *Unmarshaler) setterOf(inConstruction typeSet, ty reflect.Type) (setter, error) {
	if cached, ok := u.setterCache.Load(ty); ok {
		return cached.(setter), nil
	}

	if _, ok := inConstruction[ty]; ok {
		// recursive type. defer the lookup to decode time, the finished
		// setter is in the cache by then.
		lazySetter := func(d *Decoder, target reflect.Value) error {
			cached, _ := u.setterCache.Load(ty)
			return cached.(setter)(d, target)
		}

		return lazySetter, nil
	}

	inConstruction[ty] = struct{}{}

	setter, err := u.makeSetterOf(inConstruction, ty)
	if err != nil {
		return nil, err
	}

	u.setterCache.Store(ty, setter)

	return setter, nil
}

func (u *Unmarshaler) makeSetterOf(inConstruction typeSet, ty reflect.Type) (setter, error) {
	if ty == tyValue {
		return setValue, nil
	}

	if reflect.PointerTo(ty).Implements(tyTextUnmarshaler) {
		return setTextUnmarshaler, nil
	}

	switch ty.Kind() {
	case reflect.Bool:
		return setBool, nil

	case reflect.Int:
		switch unsafe.Sizeof(int(0)) {
		case 4:
			return makeSetInt[int](math.MinInt32, math.MaxInt32, false), nil
		case 8:
			return makeSetInt[int](math.MinInt64, math.MaxInt64, false), nil
		default:
			panic("int must be 4 or 8 byte")
		}

	case reflect.Int8:
		return makeSetInt[int8](math.MinInt8, math.MaxInt8, false), nil

	case reflect.Int16:
		return makeSetInt[int16](math.MinInt16, math.MaxInt16, false), nil

	case reflect.Int32:
		return makeSetInt[int32](math.MinInt32, math.MaxInt32, false), nil

	case reflect.Int64:
		return makeSetInt[int64](math.MinInt64, math.MaxInt64, false), nil

	// decoded integers are 64-bit signed, so MaxInt64 caps the wide
	// unsigned targets too
	case reflect.Uint:
		switch unsafe.Sizeof(uint(0)) {
		case 4:
			return makeSetInt[uint](0, math.MaxUint32, true), nil
		case 8:
			return makeSetInt[uint](0, math.MaxInt64, true), nil
		default:
			panic("uint must be 4 or 8 byte")
		}

	case reflect.Uint8:
		return makeSetInt[uint8](0, math.MaxUint8, true), nil

	case reflect.Uint16:
		return makeSetInt[uint16](0, math.MaxUint16, true), nil

	case reflect.Uint32:
		return makeSetInt[uint32](0, math.MaxUint32, true), nil

	case reflect.Uint64:
		return makeSetInt[uint64](0, math.MaxInt64, true), nil

	case reflect.Float32, reflect.Float64:
		return setFloat, nil

	case reflect.String:
		return setString, nil

	case reflect.Pointer:
		return u.makeSetPointer(inConstruction, ty)

	case reflect.Struct:
		return u.makeSetStruct(inConstruction, ty)

	case reflect.Slice:
		if ty.Elem() == tyByte {
			return setBytes, nil
		}

		return u.makeSetSlice(inConstruction, ty)

	case reflect.Array:
		return u.makeSetArray(inConstruction, ty)

	case reflect.Map:
		return u.makeSetMap(inConstruction, ty)

	default:
		return nil, NotSupportedError{Type: ty}
	}
}

func (u *Unmarshaler) makeSetStruct(inConstruction typeSet, ty reflect.Type) (setter, error) {
	structTag := u.structTag
	if structTag == "" {
		structTag = "php"
	}

	fields := structFields(ty, structTag)

	var setters []setter
	byName := make(map[string]int, len(fields))

	for idx, field := range fields {
		fieldSetter, err := u.setterOf(inConstruction, field.Type)
		if err != nil {
			return nil, fmt.Errorf("setter for field %q: %w", field.Name, err)
		}

		setters = append(setters, fieldSetter)
		byName[field.Name] = idx
	}

	setter := func(d *Decoder, target reflect.Value) error {
		entries, err := d.DecodeMap()
		if err != nil {
			return err
		}

		var seen []bool
		if u.requireValues {
			seen = make([]bool, len(fields))
		}

		for {
			ok, err := entries.More()
			if err != nil {
				return err
			}

			if !ok {
				break
			}

			idx, err := fieldIndex(d, byName, len(fields))
			if err != nil {
				return err
			}

			if idx < 0 {
				// entry without a matching field, skip its value
				if err := d.DecodeIgnored(); err != nil {
					return err
				}

				continue
			}

			field := fields[idx]

			fieldValue := target.FieldByIndex(field.Index)
			if err := setters[idx](d, fieldValue); err != nil {
				return fmt.Errorf("set field %q on %q: %w", field.Name, target.Type(), err)
			}

			if seen != nil {
				seen[idx] = true
			}
		}

		for idx := range seen {
			if !seen[idx] {
				return fmt.Errorf("field %q: %w", fields[idx].Name, ErrNoValue)
			}
		}

		return nil
	}

	return setter, nil
}

// fieldIndex decodes one struct key and resolves it to a field index, or -1
// when no field matches. String keys are demangled property names, Integer
// keys address fields in declaration order.
func fieldIndex(d *Decoder, byName map[string]int, fieldCount int) (int, error) {
	kind, err := d.peekValue()
	if err != nil {
		return 0, err
	}

	if kind == KindInteger {
		ordinal, err := d.DecodeInt()
		if err != nil {
			return 0, err
		}

		if ordinal < 0 || ordinal >= int64(fieldCount) {
			return -1, nil
		}

		return int(ordinal), nil
	}

	name, err := d.DecodePropertyName()
	if err != nil {
		return 0, err
	}

	idx, ok := byName[name]
	if !ok {
		return -1, nil
	}

	return idx, nil
}

func (u *Unmarshaler) makeSetMap(inConstruction typeSet, ty reflect.Type) (setter, error) {
	keySetter, err := u.setterOf(inConstruction, ty.Key())
	if err != nil {
		return nil, fmt.Errorf("setter for key type %q: %w", ty, err)
	}

	valueSetter, err := u.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for value type %q: %w", ty, err)
	}

	keyType := ty.Key()
	valueType := ty.Elem()

	setter := func(d *Decoder, target reflect.Value) error {
		entries, err := d.DecodeMap()
		if err != nil {
			return err
		}

		mapTarget := reflect.MakeMap(ty)

		for {
			ok, err := entries.More()
			if err != nil {
				return err
			}

			if !ok {
				break
			}

			keyTarget := reflect.New(keyType).Elem()
			if err := keySetter(d, keyTarget); err != nil {
				return fmt.Errorf("set key: %w", err)
			}

			valueTarget := reflect.New(valueType).Elem()
			if err := valueSetter(d, valueTarget); err != nil {
				return fmt.Errorf("set value: %w", err)
			}

			mapTarget.SetMapIndex(keyTarget, valueTarget)
		}

		target.Set(mapTarget)

		return nil
	}

	return setter, nil
}

func (u *Unmarshaler) makeSetSlice(inConstruction typeSet, ty reflect.Type) (setter, error) {
	elementSetter, err := u.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for element type %q: %w", ty, err)
	}

	// zero element appended to grow the slice before decoding into it
	placeholderValue := reflect.New(ty.Elem()).Elem()

	setter := func(d *Decoder, target reflect.Value) error {
		entries, err := d.DecodeMap()
		if err != nil {
			return err
		}

		for {
			ok, err := entries.More()
			if err != nil {
				return err
			}

			if !ok {
				return nil
			}

			// keys do not map to slice offsets, only the value order counts
			if err := d.DecodeIgnored(); err != nil {
				return err
			}

			target.Set(reflect.Append(target, placeholderValue))

			idx := target.Len() - 1
			elementValue := target.Index(idx)
			if err := elementSetter(d, elementValue); err != nil {
				return fmt.Errorf("set element idx=%d: %w", idx, err)
			}
		}
	}

	return setter, nil
}

func (u *Unmarshaler) makeSetArray(inConstruction typeSet, ty reflect.Type) (setter, error) {
	elementSetter, err := u.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for element type %q: %w", ty, err)
	}

	elementCount := ty.Len()

	setter := func(d *Decoder, target reflect.Value) error {
		entries, err := d.DecodeMap()
		if err != nil {
			return err
		}

		idx := 0

		for {
			ok, err := entries.More()
			if err != nil {
				return err
			}

			if !ok {
				return nil
			}

			if err := d.DecodeIgnored(); err != nil {
				return err
			}

			if idx >= elementCount {
				// surplus entries still need to leave the stream
				if err := d.DecodeIgnored(); err != nil {
					return err
				}

				continue
			}

			elementValue := target.Index(idx)
			if err := elementSetter(d, elementValue); err != nil {
				return fmt.Errorf("set element idx=%d: %w", idx, err)
			}

			idx++
		}
	}

	return setter, nil
}

func (u *Unmarshaler) makeSetPointer(inConstruction typeSet, ty reflect.Type) (setter, error) {
	pointeeType := ty.Elem()

	pointeeSetter, err := u.setterOf(inConstruction, pointeeType)
	if err != nil {
		return nil, err
	}

	setter := func(d *Decoder, target reflect.Value) error {
		some, err := d.DecodeOption()
		if err != nil {
			return err
		}

		if !some {
			target.SetZero()
			return nil
		}

		newValue := reflect.New(pointeeType)
		if err := pointeeSetter(d, newValue.Elem()); err != nil {
			return err
		}

		target.Set(newValue)

		return nil
	}

	return setter, nil
}

func setBool(d *Decoder, target reflect.Value) error {
	boolValue, err := d.DecodeBool()
	if err != nil {
		return fmt.Errorf("get bool value: %w", err)
	}

	target.SetBool(boolValue)
	return nil
}

func makeSetInt[T constraints.Integer](minValue, maxValue int64, isUnsigned bool) setter {
	return func(d *Decoder, target reflect.Value) error {
		intValue, err := d.DecodeInt()
		if err != nil {
			return fmt.Errorf("get int value: %w", err)
		}

		var tZero T

		if intValue < minValue || intValue > maxValue {
			return fmt.Errorf("invalid %T value %d: %w", tZero, intValue, strconv.ErrRange)
		}

		if isUnsigned {
			target.SetUint(uint64(intValue))
		} else {
			target.SetInt(intValue)
		}

		return nil
	}
}

func setFloat(d *Decoder, target reflect.Value) error {
	floatValue, err := d.DecodeFloat()
	if err != nil {
		return fmt.Errorf("get float value: %w", err)
	}

	target.SetFloat(floatValue)
	return nil
}

func setString(d *Decoder, target reflect.Value) error {
	stringValue, err := d.DecodeString()
	if err != nil {
		return fmt.Errorf("get string value: %w", err)
	}

	target.SetString(stringValue)

	return nil
}

func setBytes(d *Decoder, target reflect.Value) error {
	payload, err := d.DecodeBytes()
	if err != nil {
		return fmt.Errorf("get string value: %w", err)
	}

	// the payload borrows from the input, the target gets its own copy
	cloned := bytes.Clone(payload)
	target.Set(reflect.ValueOf(cloned).Convert(target.Type()))

	return nil
}

func setValue(d *Decoder, target reflect.Value) error {
	value, err := d.DecodeValue()
	if err != nil {
		return fmt.Errorf("get value tree: %w", err)
	}

	target.Set(reflect.ValueOf(value))

	return nil
}

func setTextUnmarshaler(d *Decoder, target reflect.Value) error {
	text, err := d.DecodeString()
	if err != nil {
		return fmt.Errorf("get string value: %w", err)
	}

	m := target.Addr().Interface().(encoding.TextUnmarshaler)
	return m.UnmarshalText([]byte(text))
}
