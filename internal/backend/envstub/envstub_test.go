package envstub

import (
	"context"
	"testing"

	"chunkvault/internal/backend/backendtest"
)

func TestEnvstubContract(t *testing.T) {
	b, err := Open(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close(context.Background())
	backendtest.Run(t, b)
}
