// Package unserialize decodes PHP's native serialize() format into Go values.
// It works directly on the serialized bytes without an intermediate tree and
// offers three layers: a [Parser] that pulls raw tokens off the wire, a
// [Decoder] that bridges tokens to typed reads (bool, int64, string, sequence
// and map traversal, options, enums), and an [Unmarshal] layer that fills Go
// structs, maps, slices and scalars reflectively, similar to [json.Unmarshal].
//
// String payloads are byte strings. PHP strings carry no encoding, so the
// parser hands them out as borrowed [ByteStr] views into the input buffer and
// UTF-8 validation happens only when text is explicitly requested. Property
// names of serialized objects keep PHP's NUL visibility mangling on the wire;
// [ByteStr.Property] strips it and reports the declared [Visibility].
package unserialize
