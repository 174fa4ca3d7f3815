package boltstore

import (
	"context"
	"testing"

	"chunkvault/internal/backend/backendtest"
)

func TestBoltstoreContract(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close(context.Background())
	backendtest.Run(t, b)
}
