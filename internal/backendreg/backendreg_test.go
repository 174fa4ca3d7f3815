package backendreg

import (
	"context"
	"testing"
)

func TestAllNamesOpen(t *testing.T) {
	ctx := context.Background()
	reg := New()
	for _, name := range []string{"redb", "rocksdb", "surrealkv", "sled", "envstub"} {
		b, err := reg.Open(ctx, name, t.TempDir(), nil)
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		if err := b.Close(ctx); err != nil {
			t.Fatalf("Close(%q): %v", name, err)
		}
	}
}

func TestUnknownNameFails(t *testing.T) {
	if _, err := New().Open(context.Background(), "nope", t.TempDir(), nil); err == nil {
		t.Fatal("expected an error for an unregistered backend name")
	}
}
