package chunkcodec

import (
	"fmt"
	"reflect"
	"strings"

	"chunkvault/internal/chunkpb"

	"github.com/cespare/xxhash/v2"
)

// SchemaHash is the structural hash of chunkpb.Chunk — field names,
// order, and Go types, recursively through every nested type it
// embeds — computed once at package init via reflection. This is the
// "world_format" spec.md §4.4 compares at startup: any change to the
// record shape (a field added, removed, reordered, or retyped) flips
// this value, so internal/metadata refuses to open a database written
// under a different one instead of silently misreading it.
//
// Reflection only runs here, never on Encode/Decode's hot path.
var SchemaHash = computeSchemaHash()

func computeSchemaHash() uint64 {
	var b strings.Builder
	describeType(&b, reflect.TypeOf(chunkpb.Chunk{}))
	return xxhash.Sum64String(b.String())
}

func describeType(b *strings.Builder, t reflect.Type) {
	switch t.Kind() {
	case reflect.Pointer:
		b.WriteByte('*')
		describeType(b, t.Elem())
	case reflect.Slice:
		b.WriteByte('[')
		describeType(b, t.Elem())
		b.WriteByte(']')
	case reflect.Map:
		b.WriteByte('{')
		describeType(b, t.Key())
		b.WriteByte(':')
		describeType(b, t.Elem())
		b.WriteByte('}')
	case reflect.Struct:
		fmt.Fprintf(b, "struct %s{", t.Name())
		for i := range t.NumField() {
			f := t.Field(i)
			fmt.Fprintf(b, "%s:", f.Name)
			describeType(b, f.Type)
			b.WriteByte(';')
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "%s", t.Kind())
	}
}
