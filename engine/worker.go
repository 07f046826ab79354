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

const (
	// workerErrorBudget is how many consecutive claim failures a worker
	// tolerates before giving up. The watchdog loop respawns workers for
	// batches that still have work.
	workerErrorBudget = 5

	// maxBackoff caps the retry delay regardless of retry count.
	maxBackoff = 60 * time.Second
)

func (e *Engine) newWorkerID() string {
	return fmt.Sprintf("%s-%s", e.instanceID, uuid.New().String()[:8])
}

// runWorker drains one batch: it claims pending items one at a time and
// analyzes each until the queue is empty or the batch stops being
// claimable, then runs a completion check and exits.
func (e *Engine) runWorker(ctx context.Context, batchID uuid.UUID) {
	workerID := e.newWorkerID()

	batch, err := e.queries.GetBatchByID(ctx, batchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return
	}
	if err != nil {
		e.logger.Error(err).LogActivity("worker could not load batch", map[string]any{
			"batch":  batchID.String(),
			"worker": workerID,
		})
		return
	}

	e.logger.Debug0().LogActivity("worker started", map[string]any{
		"batch":  batchID.String(),
		"worker": workerID,
	})

	consecutiveErrors := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, claimed, err := e.claimNextItem(ctx, batchID, workerID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			e.logger.Error(err).LogActivity("item claim failed", map[string]any{
				"batch":  batchID.String(),
				"worker": workerID,
			})
			if consecutiveErrors >= workerErrorBudget {
				e.logger.Warn().LogActivity("worker exiting after repeated claim failures", map[string]any{
					"batch":  batchID.String(),
					"worker": workerID,
				})
				return
			}
			if !sleepCtx(ctx, time.Duration(e.config.WorkerBackoffBaseMs)*time.Millisecond) {
				return
			}
			continue
		}
		consecutiveErrors = 0

		if !claimed {
			if err := e.checkBatchCompletion(ctx, batchID); err != nil {
				e.logger.Error(err).LogActivity("batch completion check failed", map[string]any{
					"batch": batchID.String(),
				})
			}
			e.logger.Debug0().LogActivity("worker done", map[string]any{
				"batch":  batchID.String(),
				"worker": workerID,
			})
			return
		}

		e.processItem(ctx, batch.Jd, item, workerID)
	}
}

// processItem runs the analyzer on one claimed item and records the
// outcome. Every terminal write is predicated on the lease still belonging
// to this worker; when the watchdog has reassigned the item in the
// meantime, the result is dropped and the counters stay untouched.
func (e *Engine) processItem(ctx context.Context, jd string, item batchsqlc.Item, workerID string) {
	res, aerr := e.analyzer.Analyze(ctx, item.Fileref, jd)
	now := ts(time.Now().UTC())

	if aerr == nil {
		n, err := e.queries.CompleteItem(ctx, batchsqlc.CompleteItemParams{
			ID:        item.ID,
			Workerid:  txt(workerID),
			Res:       []byte(res.String()),
			Updatedat: now,
		})
		if err != nil {
			e.logger.Error(err).LogActivity("item completion write failed", map[string]any{
				"item":   item.ID.String(),
				"worker": workerID,
			})
			return
		}
		if n == 0 {
			e.logger.Debug0().LogActivity("item lease lost, result dropped", map[string]any{
				"item":   item.ID.String(),
				"worker": workerID,
			})
			return
		}
		if err := e.queries.IncrementBatchCompleted(ctx, batchsqlc.IncrementBatchCompletedParams{ID: item.Batch, Updatedat: now}); err != nil {
			e.logger.Error(err).LogActivity("ncomplete bump failed", map[string]any{"batch": item.Batch.String()})
		}
		e.metrics.Record(metricItemsCompleted, 1)
		e.logger.LogDataChange("item complete", logharbour.ChangeInfo{
			Entity: "Item",
			Op:     "StatusChange",
			Changes: []logharbour.ChangeDetail{
				{Field: "status", OldVal: batchsqlc.ItemStatusEnumRunning, NewVal: batchsqlc.ItemStatusEnumComplete},
			},
		})
		if err := e.checkBatchCompletion(ctx, item.Batch); err != nil {
			e.logger.Error(err).LogActivity("batch completion check failed", map[string]any{"batch": item.Batch.String()})
		}
		return
	}

	code, msg, transient := classifyAnalyzerError(aerr)

	if transient && item.Nretries < item.Maxretries {
		n, err := e.queries.RequeueItem(ctx, batchsqlc.RequeueItemParams{
			ID:        item.ID,
			Workerid:  txt(workerID),
			Errcode:   txt(code),
			Errmsg:    txt(msg),
			Updatedat: now,
		})
		if err != nil {
			e.logger.Error(err).LogActivity("item requeue failed", map[string]any{
				"item":   item.ID.String(),
				"worker": workerID,
			})
			return
		}
		if n == 0 {
			return
		}
		e.metrics.Record(metricItemsRequeued, 1)
		e.logger.Info().LogActivity("item requeued after transient failure", map[string]any{
			"item":    item.ID.String(),
			"errcode": code,
			"retry":   item.Nretries + 1,
			"of":      item.Maxretries,
		})
		e.backoff(ctx, int(item.Nretries))
		return
	}

	n, err := e.queries.FailItem(ctx, batchsqlc.FailItemParams{
		ID:        item.ID,
		Workerid:  txt(workerID),
		Errcode:   txt(code),
		Errmsg:    txt(msg),
		Updatedat: now,
	})
	if err != nil {
		e.logger.Error(err).LogActivity("item failure write failed", map[string]any{
			"item":   item.ID.String(),
			"worker": workerID,
		})
		return
	}
	if n == 0 {
		return
	}
	if err := e.queries.IncrementBatchFailed(ctx, batchsqlc.IncrementBatchFailedParams{ID: item.Batch, Updatedat: now}); err != nil {
		e.logger.Error(err).LogActivity("nfailed bump failed", map[string]any{"batch": item.Batch.String()})
	}
	e.metrics.Record(metricItemsFailed, 1)
	e.logger.LogDataChange("item failed", logharbour.ChangeInfo{
		Entity: "Item",
		Op:     "StatusChange",
		Changes: []logharbour.ChangeDetail{
			{Field: "status", OldVal: batchsqlc.ItemStatusEnumRunning, NewVal: batchsqlc.ItemStatusEnumFailed},
		},
	})
	if err := e.checkBatchCompletion(ctx, item.Batch); err != nil {
		e.logger.Error(err).LogActivity("batch completion check failed", map[string]any{"batch": item.Batch.String()})
	}
}

// classifyAnalyzerError maps an analyzer failure onto an error code and a
// retry class. Unrecognized errors are treated as permanent.
func classifyAnalyzerError(err error) (code string, msg string, transient bool) {
	var aerr *AnalyzerError
	if errors.As(err, &aerr) {
		return aerr.Code, aerr.Message, aerr.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout, err.Error(), true
	}
	return ErrCodeAnalyzer, err.Error(), false
}

// backoff sleeps before the next attempt of a requeued item. The worker
// sleeps in place, so the item stays at the queue tail while its delay
// runs down.
func (e *Engine) backoff(ctx context.Context, retriesUsed int) {
	sleepCtx(ctx, retryDelay(e.config.WorkerBackoffBaseMs, retriesUsed))
}

// retryDelay returns base * 2^retriesUsed, capped at maxBackoff.
func retryDelay(baseMs, retriesUsed int) time.Duration {
	d := time.Duration(baseMs) * time.Millisecond
	for i := 0; i < retriesUsed && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// sleepCtx sleeps for d or until ctx is done. Returns false when cut short.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
