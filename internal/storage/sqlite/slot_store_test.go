package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSlotStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "autoflow.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	got, err := store.Get(ctx, "autoflow-workflows")
	if err != nil || got != nil {
		t.Fatalf("missing key should be nil, nil; got %q, %v", got, err)
	}
	if err := store.Put(ctx, "autoflow-workflows", []byte(`[{"name":"a"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "autoflow-workflows", []byte(`[{"name":"a"},{"name":"b"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err = reopened.Get(ctx, "autoflow-workflows")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"name":"a"},{"name":"b"}]` {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
