package unserialize

import "bytes"

// Visibility is the access level a serialized object property declares
// through PHP's name mangling.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	}

	return "unknown"
}

// Property interprets the payload as a serialized property name, strips
// PHP's visibility mangling and returns the clean name with its declared
// visibility.
//
// PHP encodes protected properties as "\x00*\x00name" and private properties
// as "\x00ClassName\x00name"; the owning class name is dropped. Names without
// mangling are public. A leading NUL with no second NUL does not match either
// scheme and is passed through unchanged as public.
//
// The clean name is UTF-8 validated; mangled bytes that do not decode fail
// with [ErrInvalidUTF8].
func (s ByteStr) Property() (string, Visibility, error) {
	name, visibility := demangle(s)

	text, err := ByteStr(name).Text()
	if err != nil {
		return "", visibility, err
	}

	return text, visibility, nil
}

func demangle(name []byte) ([]byte, Visibility) {
	if len(name) >= 3 && name[0] == 0 && name[1] == '*' && name[2] == 0 {
		return name[3:], Protected
	}

	if len(name) > 0 && name[0] == 0 {
		if idx := bytes.IndexByte(name[1:], 0); idx >= 0 {
			return name[idx+2:], Private
		}
	}

	return name, Public
}
