package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
)

// Sweep interval bounds. The actual interval is randomized inside this
// window so multiple instances do not sweep in lockstep.
const (
	sweepMinInterval = 5 * time.Minute
	sweepMaxInterval = 10 * time.Minute
)

// runSweeper is the slow safety net behind the completion check: it closes
// batches whose closing worker died mid-transition and repairs counters
// that drifted from the item rows.
func (e *Engine) runSweeper(ctx context.Context) {
	for {
		interval := sweepMinInterval + time.Duration(rand.Int63n(int64(sweepMaxInterval-sweepMinInterval)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			if err := e.sweepSettledBatches(ctx); err != nil {
				e.logger.Error(err).LogActivity("sweep pass failed", nil)
			}
		}
	}
}

func (e *Engine) sweepSettledBatches(ctx context.Context) error {
	// Batches with settled counters that never got their close.
	settled, err := e.queries.GetSettledOpenBatches(ctx)
	if err != nil {
		return err
	}
	for _, id := range settled {
		e.logger.Info().LogActivity("sweeper closing settled batch", map[string]any{"batch": id.String()})
		if err := e.checkBatchCompletion(ctx, id); err != nil {
			e.logger.Error(err).LogActivity("sweeper close failed", map[string]any{"batch": id.String()})
		}
	}

	// Batches where every item is terminal but the counters disagree,
	// from increments lost to a crash between item write and bump.
	stalled, err := e.queries.GetStalledBatches(ctx)
	if err != nil {
		return err
	}
	for _, id := range stalled {
		n, err := e.queries.SyncBatchCounters(ctx, batchsqlc.SyncBatchCountersParams{
			Batch:     id,
			Updatedat: ts(time.Now().UTC()),
		})
		if err != nil {
			e.logger.Error(err).LogActivity("batch counter repair failed", map[string]any{"batch": id.String()})
			continue
		}
		if n == 0 {
			continue
		}
		e.logger.Warn().LogActivity("batch counters repaired from item rows", map[string]any{"batch": id.String()})
		if err := e.checkBatchCompletion(ctx, id); err != nil {
			e.logger.Error(err).LogActivity("sweeper close failed", map[string]any{"batch": id.String()})
		}
	}
	return nil
}
