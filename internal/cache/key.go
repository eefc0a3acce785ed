package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"inferd/pkg/types"
)

// Key derives the cache key for one inference call. Params are
// canonicalized before hashing (json.Marshal emits map keys in sorted
// order, recursively), so semantically identical calls always hash
// identically regardless of construction order.
func Key(modelID, input string, params types.InferParams) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(input))
	h.Write([]byte{0})
	if len(params) > 0 {
		// Marshal of a map cannot fail for JSON-compatible param values;
		// a non-serializable param degrades to the empty canonical form.
		if b, err := json.Marshal(params); err == nil {
			h.Write(b)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
