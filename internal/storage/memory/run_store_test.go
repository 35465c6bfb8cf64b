package memory

import (
	"context"
	"errors"
	"testing"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunRecord{
		RunID:       "run1",
		ModelID:     "GBM_s0=100_mu=0.05_sigma=0.2_dt=0.004",
		StrategyID:  "SPOT_size=1_entry=100_cost=0",
		Trials:      10000,
		Horizon:     252,
		Seed:        42,
		CompletedAt: 2000,
	}

	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Trials != 10000 {
		t.Errorf("Trials mismatch: got %d, want 10000", got.Trials)
	}
	if got.Seed != 42 {
		t.Errorf("Seed mismatch: got %d, want 42", got.Seed)
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunRecord{RunID: "run1"}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, run)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunStore_NotFound(t *testing.T) {
	store := NewRunStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_GetByTimeRange(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	runs := []*domain.RunRecord{
		{RunID: "r1", CompletedAt: 1000},
		{RunID: "r2", CompletedAt: 2000},
		{RunID: "r3", CompletedAt: 3000},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByTimeRange(ctx, 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(result))
	}
	if result[0].RunID != "r1" || result[1].RunID != "r2" {
		t.Errorf("Results not ordered by completed_at: %s, %s", result[0].RunID, result[1].RunID)
	}
}

func TestRunStore_InvalidInput(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.RunRecord{RunID: ""}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}
