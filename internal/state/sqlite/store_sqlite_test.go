package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "TotalCost", "100"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, ok, err := store.Get(ctx, "TotalCost")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || val != "100" {
		t.Fatalf("unexpected value: %v (ok=%v)", val, ok)
	}
	if err := store.Set(ctx, "TotalCost", "220"); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	val, ok, err = store.Get(ctx, "TotalCost")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || val != "220" {
		t.Fatalf("expected upserted value, got %v (ok=%v)", val, ok)
	}
	if err := store.Delete(ctx, "TotalCost"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_, ok, err = store.Get(ctx, "TotalCost")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := New(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, "StopLossTriggered", "true"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()
	val, ok, err := reopened.Get(ctx, "StopLossTriggered")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || val != "true" {
		t.Fatalf("expected persisted value, got %v (ok=%v)", val, ok)
	}
}
