package memory

import (
	"context"
	"errors"
	"testing"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

func scoredEvent(mint string, ts int64, score float64) *domain.ScoredEvent {
	return &domain.ScoredEvent{
		Event: domain.RawEvent{
			Mint:            mint,
			Symbol:          "TEST",
			Source:          domain.SourcePumpPortal,
			SourceTimestamp: ts,
		},
		Score:    score,
		ScoredAt: ts,
	}
}

func TestTokenEventStore_InsertAndGetByMint(t *testing.T) {
	store := NewTokenEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, scoredEvent("mint1", 2000, 55)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, scoredEvent("mint1", 1000, 40)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, scoredEvent("mint2", 1500, 80)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(result))
	}

	// Ordered by time ASC
	if result[0].Event.SourceTimestamp != 1000 || result[1].Event.SourceTimestamp != 2000 {
		t.Errorf("Events not ordered by time: %d, %d",
			result[0].Event.SourceTimestamp, result[1].Event.SourceTimestamp)
	}
}

func TestTokenEventStore_DuplicateKey(t *testing.T) {
	store := NewTokenEventStore()
	ctx := context.Background()

	e := scoredEvent("mint1", 1000, 50)

	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	// Same (mint, time) — the idempotency key
	err := store.Insert(ctx, scoredEvent("mint1", 1000, 50))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	result, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("Expected exactly 1 stored row after duplicate insert, got %d", len(result))
	}
}

func TestTokenEventStore_InsertBatchPartialFailure(t *testing.T) {
	store := NewTokenEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, scoredEvent("mint1", 1000, 50)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	batch := []*domain.ScoredEvent{
		scoredEvent("mint1", 1000, 50), // duplicate
		scoredEvent("mint2", 1000, 60), // new
		scoredEvent("mint3", 1000, 70), // new
	}

	failed, err := store.InsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("InsertBatch batch-level error: %v", err)
	}

	if len(failed) != 1 {
		t.Fatalf("Expected 1 failed event, got %d", len(failed))
	}
	if !errors.Is(failed[0], storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey at index 0, got %v", failed[0])
	}

	// The non-duplicate events must have landed.
	for _, mint := range []string{"mint2", "mint3"} {
		rows, err := store.GetByMint(ctx, mint)
		if err != nil {
			t.Fatalf("GetByMint(%s) failed: %v", mint, err)
		}
		if len(rows) != 1 {
			t.Errorf("Expected 1 row for %s, got %d", mint, len(rows))
		}
	}
}

func TestTokenEventStore_TopByScoreSince(t *testing.T) {
	store := NewTokenEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, scoredEvent("a", 1000, 90)); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, scoredEvent("b", 2000, 95)); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, scoredEvent("c", 3000, 50)); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, scoredEvent("old", 100, 99)); err != nil {
		t.Fatal(err)
	}

	top, err := store.TopByScoreSince(ctx, 1000, 2)
	if err != nil {
		t.Fatalf("TopByScoreSince failed: %v", err)
	}

	if len(top) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(top))
	}
	if top[0].Event.Mint != "b" || top[1].Event.Mint != "a" {
		t.Errorf("Wrong ordering: got %s, %s", top[0].Event.Mint, top[1].Event.Mint)
	}
}

func TestTokenEventStore_StoredRowsAreIsolated(t *testing.T) {
	store := NewTokenEventStore()
	ctx := context.Background()

	e := scoredEvent("mint1", 1000, 50)
	e.RiskFlags = []domain.RiskFlag{domain.FlagLowLiquidity}

	if err := store.Insert(ctx, e); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's copy must not affect the stored row.
	e.RiskFlags[0] = domain.FlagCopycatName

	rows, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].RiskFlags[0] != domain.FlagLowLiquidity {
		t.Errorf("Stored row was mutated through caller slice: %v", rows[0].RiskFlags)
	}
}
