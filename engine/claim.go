package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
)

// claimAttempts bounds how often a worker retries after losing a claim
// race to another worker before it backs off to the next poll.
const claimAttempts = 3

// claimNextItem atomically claims the oldest pending item of the batch for
// this worker. The claim is a single UPDATE with SKIP LOCKED row selection,
// so two workers can never claim the same item and a worker never blocks
// behind another worker's claim.
//
// Claims only succeed while the batch is in running status. The second
// return value is false when there is nothing left to claim, either because
// the queue is drained or because the batch is no longer claimable.
func (e *Engine) claimNextItem(ctx context.Context, batchID uuid.UUID, workerID string) (batchsqlc.Item, bool, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		item, err := e.queries.ClaimPendingItem(ctx, batchsqlc.ClaimPendingItemParams{
			Batch:    batchID,
			Workerid: txt(workerID),
			Startat:  ts(time.Now().UTC()),
		})
		if err == nil {
			return item, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return batchsqlc.Item{}, false, err
		}

		// Nothing claimed. Retry only when a claimable item still exists,
		// which means every candidate row was locked by a concurrent
		// claimant. A drained queue or a batch that left running status
		// comes back as no rows and ends the loop.
		_, err = e.queries.GetOldestClaimableItem(ctx, batchID)
		if errors.Is(err, pgx.ErrNoRows) {
			return batchsqlc.Item{}, false, nil
		}
		if err != nil {
			return batchsqlc.Item{}, false, err
		}
	}
	return batchsqlc.Item{}, false, nil
}
