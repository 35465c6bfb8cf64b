package memory

import (
	"context"
	"errors"
	"testing"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

func TestSnapshotStore_InsertAndGet(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	sharpe := 1.5
	snap := &domain.RiskSnapshot{
		RunID:         "r1",
		Trials:        1000,
		MeanPnL:       42.5,
		VaR:           -120,
		CVaR:          -180,
		Sharpe:        &sharpe,
		Undefined:     []string{"sortino"},
		VaRConfidence: 0.95,
	}

	if err := store.Insert(ctx, snap); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if got.MeanPnL != 42.5 {
		t.Errorf("MeanPnL mismatch: got %v", got.MeanPnL)
	}
	if got.Sharpe == nil || *got.Sharpe != 1.5 {
		t.Errorf("Sharpe mismatch: got %v", got.Sharpe)
	}

	// The stored copy is isolated from caller mutation.
	*snap.Sharpe = 99
	snap.Undefined[0] = "changed"
	got2, _ := store.GetByRunID(ctx, "r1")
	if *got2.Sharpe != 1.5 {
		t.Errorf("Stored Sharpe mutated through caller pointer: %v", *got2.Sharpe)
	}
	if got2.Undefined[0] != "sortino" {
		t.Errorf("Stored Undefined mutated through caller slice: %v", got2.Undefined)
	}
}

func TestSnapshotStore_DuplicateKey(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	snap := &domain.RiskSnapshot{RunID: "r1"}
	if err := store.Insert(ctx, snap); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, snap); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSnapshotStore_NotFound(t *testing.T) {
	store := NewSnapshotStore()

	_, err := store.GetByRunID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
