// Package ltm is the agent's long-term memory: the fingerprint-keyed
// request/response cache and the wiki content slot, each mirrored to a file
// under a configured directory.
package ltm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tjfontaine/kb-agent/internal/domain"
)

// Fingerprint computes the cache key for a task request: lowercase hex
// SHA-256 over the canonical JSON serialization.
//
// encoding/json serializes map keys in sorted order, recursively, so two
// structurally equal requests produce identical bytes regardless of the key
// order the caller sent.
func Fingerprint(req domain.TaskRequest) string {
	canonical, err := json.Marshal(map[string]any(req))
	if err != nil {
		// TaskRequests come from decoded JSON, so they always re-serialize.
		// The fallback keys the raw error text rather than panicking.
		canonical = []byte(err.Error())
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
