package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
)

// checkBatchCompletion closes the batch once every item has reached a
// terminal status. The close itself is a conditional UPDATE predicated on
// the batch still being in running status with fully settled counters, so
// no matter how many workers observe the final item at once, exactly one
// of them performs the transition.
func (e *Engine) checkBatchCompletion(ctx context.Context, batchID uuid.UUID) error {
	batch, err := e.queries.GetBatchByID(ctx, batchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	settled := batch.Ncomplete + batch.Nfailed + batch.Ncancelled
	if settled > batch.Ntotal {
		return e.freezeBrokenBatch(ctx, batch, settled)
	}
	if batch.Status != batchsqlc.BatchStatusEnumRunning || settled < batch.Ntotal {
		return nil
	}

	n, err := e.queries.CloseBatchIfSettled(ctx, batchsqlc.CloseBatchIfSettledParams{
		ID:        batchID,
		Updatedat: ts(time.Now().UTC()),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		// Another worker closed it, or a late control action got there
		// first. Either way there is nothing left to do.
		return nil
	}

	e.logger.LogDataChange("batch complete", logharbour.ChangeInfo{
		Entity: "Batch",
		Op:     "StatusChange",
		Changes: []logharbour.ChangeDetail{
			{Field: "status", OldVal: batchsqlc.BatchStatusEnumRunning, NewVal: batchsqlc.BatchStatusEnumComplete},
		},
	})
	e.logger.Info().LogActivity("batch complete", map[string]any{
		"batch":      batchID.String(),
		"ncomplete":  batch.Ncomplete,
		"nfailed":    batch.Nfailed,
		"ncancelled": batch.Ncancelled,
	})
	e.metrics.Record(metricBatchesCompleted, 1)
	e.cacheBatchStatus(ctx, batchID, batch.Owner, batchsqlc.BatchStatusEnumComplete)
	return nil
}

// freezeBrokenBatch handles counters that add up to more than the batch
// total. No legal write sequence produces that state, so it is treated as
// corruption. The batch is paused and left for an operator.
func (e *Engine) freezeBrokenBatch(ctx context.Context, batch batchsqlc.Batch, settled int32) error {
	e.logger.Error(fmt.Errorf("batch %s counters exceed total: %d > %d", batch.ID, settled, batch.Ntotal)).
		LogActivity("batch accounting violation, freezing batch", map[string]any{
			"batch":      batch.ID.String(),
			"ntotal":     batch.Ntotal,
			"ncomplete":  batch.Ncomplete,
			"nfailed":    batch.Nfailed,
			"ncancelled": batch.Ncancelled,
		})
	n, err := e.queries.PauseBatch(ctx, batchsqlc.PauseBatchParams{
		ID:        batch.ID,
		Updatedat: ts(time.Now().UTC()),
	})
	if err != nil {
		return err
	}
	if n == 1 {
		e.cacheBatchStatus(ctx, batch.ID, batch.Owner, batchsqlc.BatchStatusEnumPaused)
	}
	return nil
}
