package recommend

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestLocalModelStore_Roundtrip(t *testing.T) {
	store := mustModelStore(t)
	payload := []byte(`{"config":{}}`)

	if err := store.Save(context.Background(), "ws1", payload); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, savedAt, err := store.Load(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload mismatch: %s", data)
	}
	if savedAt.IsZero() {
		t.Fatal("expected a non-zero save time")
	}
}

func TestLocalModelStore_Missing(t *testing.T) {
	store := mustModelStore(t)

	_, _, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestLocalModelStore_OverwriteReplaces(t *testing.T) {
	store := mustModelStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "ws1", []byte("old")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, "ws1", []byte("new")); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	data, _, err := store.Load(ctx, "ws1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(data) != "new" {
		t.Fatalf("expected latest payload, got %s", data)
	}
}
