package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSlotsRoundTrip(t *testing.T) {
	fileSlot, err := NewFileSlot(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("new file slot: %v", err)
	}
	slots := map[string]Slot{
		"memory": NewMemorySlot(),
		"file":   fileSlot,
	}
	for name, slot := range slots {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			got, err := slot.Get(ctx, DraftsKey)
			if err != nil || got != nil {
				t.Fatalf("missing key should be nil, nil; got %q, %v", got, err)
			}
			if err := slot.Put(ctx, DraftsKey, []byte(`[{"name":"a"}]`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := slot.Put(ctx, DraftsKey, []byte(`[]`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err = slot.Get(ctx, DraftsKey)
			if err != nil || string(got) != "[]" {
				t.Fatalf("unexpected value: %q, %v", got, err)
			}
			if err := slot.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
	}
}

func TestFileSlotSanitisesKeys(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewFileSlot(dir)
	if err != nil {
		t.Fatalf("new file slot: %v", err)
	}
	if err := slot.Put(context.Background(), "../escape/key", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".._escape_key.json")); err != nil {
		t.Fatalf("expected sanitised file inside dir: %v", err)
	}
}

func TestMemorySlotReturnsCopies(t *testing.T) {
	slot := NewMemorySlot()
	ctx := context.Background()
	value := []byte("abc")
	_ = slot.Put(ctx, "k", value)
	value[0] = 'z'
	got, _ := slot.Get(ctx, "k")
	got[1] = 'z'
	again, _ := slot.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("slot shares memory with callers: %s", again)
	}
}
