// Redis key construction for the engine.
//
// Keys embed the batch ID inside {braces} so that Redis Cluster hashes
// every key of one batch to the same slot.

package engine

import "fmt"

// BatchStatusKey returns the Redis key caching a batch's owner and status.
func BatchStatusKey(batchID string) string {
	return fmt.Sprintf("SIFT_{%s}_STATUS", batchID)
}
