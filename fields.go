package unserialize

import (
	"reflect"
	"slices"
	"strings"
)

// field is one decodable struct field under the name it matches on the wire.
type field struct {
	Name  string
	Type  reflect.Type
	Index []int
}

// structFields resolves the fields a struct type decodes into: exported
// fields, flattened across embedded structs, renamed by their struct tag.
// The result keeps declaration order, Integer wire keys address it by
// ordinal.
//
// A name claimed by multiple fields goes to the shallowest one. On equal
// depth a single tag-renamed field beats untagged ones, anything still
// ambiguous stays unmatched without an error.
func structFields(ty reflect.Type, structTag string) []field {
	if ty.Kind() != reflect.Struct {
		panic("not a struct")
	}

	type embedded struct {
		ty     reflect.Type
		prefix []int
	}

	type candidate struct {
		field    field
		tagNamed bool
	}

	// walk breadth first so shallow fields land in their group before the
	// embedded fields they shadow
	queue := []embedded{{ty: ty}}

	groups := map[string][]candidate{}

	var names []string

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		for idx := range next.ty.NumField() {
			fi := next.ty.Field(idx)
			if !fi.IsExported() {
				continue
			}

			name, tagNamed := fieldName(fi, structTag)
			if name == "" {
				// tagged as skipped
				continue
			}

			// capped append, the prefix is shared with sibling fields
			prefix := next.prefix
			index := append(prefix[:len(prefix):len(prefix)], fi.Index...)

			if fi.Anonymous && !tagNamed {
				// flatten embedded structs, drop other embedded kinds
				if fi.Type.Kind() != reflect.Struct {
					continue
				}

				queue = append(queue, embedded{fi.Type, index})
				continue
			}

			if len(groups[name]) == 0 {
				names = append(names, name)
			}

			groups[name] = append(groups[name], candidate{
				tagNamed: tagNamed,
				field: field{
					Name:  name,
					Type:  fi.Type,
					Index: index,
				},
			})
		}
	}

	var fields []field

	for _, name := range names {
		group := groups[name]

		// INVARIANT: breadth first walking keeps each group ordered by depth
		byDepth := func(a, b candidate) int { return len(a.field.Index) - len(b.field.Index) }
		if !slices.IsSortedFunc(group, byDepth) {
			panic("field candidates not in depth order")
		}

		// only the shallowest candidates can claim the name
		visible := group
		for idx, c := range group {
			if len(c.field.Index) > len(group[0].field.Index) {
				visible = group[:idx]
				break
			}
		}

		if len(visible) == 1 {
			fields = append(fields, visible[0].field)
			continue
		}

		var tagged []candidate
		for _, c := range visible {
			if c.tagNamed {
				tagged = append(tagged, c)
			}
		}

		if len(tagged) == 1 {
			fields = append(fields, tagged[0].field)
			continue
		}

		// still ambiguous, the name stays unmatched
	}

	return fields
}

func fieldName(fi reflect.StructField, structTag string) (name string, tagNamed bool) {
	tag := fi.Tag.Get(structTag)

	if tag == "" {
		return fi.Name, false
	}

	if tag == "-" {
		return "", true
	}

	switch idx := strings.IndexByte(tag, ','); {
	case idx == -1:
		return tag, true

	case idx > 0:
		return tag[:idx], true

	default:
		// options only, e.g. ",omitempty", the field keeps its own name
		return fi.Name, false
	}
}
