package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stocktake/internal/core"
	"stocktake/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(model string, qty int) core.Transaction {
	return core.Transaction{
		Timestamp: time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local),
		Action:    core.ActionFor(qty),
		Model:     model,
		Location:  core.Warehouse,
		Quantity:  qty,
	}
}

func TestAppendReadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Append(ctx, sample("ABC123", 3)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(ctx, sample("TX-9", -2)); err != nil {
		t.Fatalf("append: %v", err)
	}

	txs, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(txs))
	}
	if txs[0].Model != "ABC123" || txs[1].Model != "TX-9" {
		t.Fatalf("rows out of order: %+v", txs)
	}
	if !txs[0].Timestamp.Equal(sample("ABC123", 3).Timestamp) {
		t.Fatalf("timestamp did not round trip: %v", txs[0].Timestamp)
	}
	if txs[1].Quantity != -2 || txs[1].Action != core.Removed {
		t.Fatalf("unexpected second row %+v", txs[1])
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append(context.Background(), sample("", 1)); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRemoveLast(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, sample("A", 1))
	s.Append(ctx, sample("B", 2))

	got, err := s.RemoveLast(ctx)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got.Model != "B" || got.Quantity != 2 {
		t.Fatalf("removed wrong row %+v", got)
	}

	txs, _ := s.ReadAll(ctx)
	if len(txs) != 1 || txs[0].Model != "A" {
		t.Fatalf("expected only A left, got %+v", txs)
	}
}

func TestRemoveLastEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.RemoveLast(context.Background()); !errors.Is(err, store.ErrEmptyLedger) {
		t.Fatalf("expected ErrEmptyLedger, got %v", err)
	}
}

func TestWipe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, sample("A", 1))
	s.Append(ctx, sample("B", 2))
	if err := s.Wipe(ctx); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	txs, _ := s.ReadAll(ctx)
	if len(txs) != 0 {
		t.Fatalf("expected empty ledger, got %+v", txs)
	}
	if err := s.Wipe(ctx); err != nil {
		t.Fatalf("wipe on empty: %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")
	s1, err := New(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Append(context.Background(), sample("A", 1))
	s1.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	txs, err := s2.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read after reopen: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("data lost across reopen: %+v", txs)
	}
}
