package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(model_id|strategy_id|trials|horizon|seed)
// Returns the base58-encoded hash. Identical run configurations always
// map to the same run_id, so re-running an evaluation is idempotent at
// the storage layer.
func ComputeRunID(modelID, strategyID string, trials, horizon int, seed uint64) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d",
		modelID,
		strategyID,
		trials,
		horizon,
		seed,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
