package memory

import (
	"context"
	"errors"
	"testing"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

func TestDecisionStore_InsertAndGet(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	d := &domain.DecisionRecord{
		RunID:          "r1",
		Verdict:        "REJECT",
		FailedCriteria: []string{"max_probability_of_ruin"},
		EvaluatedAt:    5000,
	}

	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if got.Verdict != "REJECT" {
		t.Errorf("Verdict mismatch: got %s", got.Verdict)
	}
	if len(got.FailedCriteria) != 1 || got.FailedCriteria[0] != "max_probability_of_ruin" {
		t.Errorf("FailedCriteria mismatch: got %v", got.FailedCriteria)
	}
}

func TestDecisionStore_DuplicateKey(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	d := &domain.DecisionRecord{RunID: "r1", Verdict: "ACCEPT"}
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, d); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestDecisionStore_NotFound(t *testing.T) {
	store := NewDecisionStore()

	_, err := store.GetByRunID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDecisionStore_InvalidInput(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.DecisionRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty run ID, got %v", err)
	}
}
