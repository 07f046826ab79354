package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
)

// watchdogPageSize bounds how many expired leases one recovery pass
// touches. Anything beyond the page is picked up on the next tick.
const watchdogPageSize = 100

// RecoverExpiredLeases finds items whose lease has run out and puts them
// back into circulation: requeued to the tail when they still have retry
// budget, failed otherwise. An expired item of a cancelled batch is
// cancelled instead, the pending sweep already ran there and a requeued
// item could never be claimed again. Every write is predicated on the
// lease timestamp it was read with, so a worker that was only slow, or
// another watchdog instance, cannot be raced.
//
// Returns how many items were requeued, failed and cancelled.
func (e *Engine) RecoverExpiredLeases(ctx context.Context) (requeued, failed, cancelled int, err error) {
	cutoff := time.Now().UTC().Add(-time.Duration(e.config.LeaseSeconds) * time.Second)
	expired, err := e.queries.GetExpiredRunningItems(ctx, batchsqlc.GetExpiredRunningItemsParams{
		Startat: ts(cutoff),
		Limit:   watchdogPageSize,
	})
	if err != nil {
		return 0, 0, 0, err
	}

	batchStatus := make(map[uuid.UUID]batchsqlc.BatchStatusEnum)
	for _, item := range expired {
		now := ts(time.Now().UTC())
		errmsg := fmt.Sprintf("lease expired after %ds, worker %s presumed dead", e.config.LeaseSeconds, item.Workerid.String)

		status, known := batchStatus[item.Batch]
		if !known {
			b, err := e.queries.GetBatchByID(ctx, item.Batch)
			if err != nil {
				e.logger.Error(err).LogActivity("expired lease batch lookup failed", map[string]any{"batch": item.Batch.String()})
				continue
			}
			status = b.Status
			batchStatus[item.Batch] = status
		}

		if status == batchsqlc.BatchStatusEnumCancelled {
			n, err := e.queries.CancelExpiredItem(ctx, batchsqlc.CancelExpiredItemParams{
				ID:        item.ID,
				Startat:   item.Startat,
				Updatedat: now,
			})
			if err != nil {
				e.logger.Error(err).LogActivity("expired lease cancel failed", map[string]any{"item": item.ID.String()})
				continue
			}
			if n == 0 {
				continue
			}
			if err := e.queries.AddBatchCancelled(ctx, batchsqlc.AddBatchCancelledParams{
				ID:         item.Batch,
				Ncancelled: 1,
				Updatedat:  now,
			}); err != nil {
				e.logger.Error(err).LogActivity("ncancelled bump failed", map[string]any{"batch": item.Batch.String()})
			}
			cancelled++
			e.metrics.Record(metricWatchdogRecoveries, 1)
			e.logger.Warn().LogActivity("expired lease cancelled with its batch", map[string]any{
				"item":   item.ID.String(),
				"batch":  item.Batch.String(),
				"worker": item.Workerid.String,
			})
			continue
		}

		if item.Nretries < item.Maxretries {
			n, err := e.queries.RequeueExpiredItem(ctx, batchsqlc.RequeueExpiredItemParams{
				ID:        item.ID,
				Startat:   item.Startat,
				Errcode:   txt(ErrCodeTimeout),
				Errmsg:    txt(errmsg),
				Updatedat: now,
			})
			if err != nil {
				e.logger.Error(err).LogActivity("expired lease requeue failed", map[string]any{"item": item.ID.String()})
				continue
			}
			if n == 0 {
				// The worker finished, or another watchdog got here
				// first. The lease timestamp no longer matches.
				continue
			}
			requeued++
			e.metrics.Record(metricWatchdogRecoveries, 1)
			e.metrics.Record(metricItemsRequeued, 1)
			e.logger.Warn().LogActivity("expired lease requeued", map[string]any{
				"item":   item.ID.String(),
				"batch":  item.Batch.String(),
				"worker": item.Workerid.String,
				"retry":  item.Nretries + 1,
			})
			e.ensureWorker(item.Batch)
			continue
		}

		n, err := e.queries.FailExpiredItem(ctx, batchsqlc.FailExpiredItemParams{
			ID:        item.ID,
			Startat:   item.Startat,
			Errcode:   txt(ErrCodeTimeout),
			Errmsg:    txt(errmsg),
			Updatedat: now,
		})
		if err != nil {
			e.logger.Error(err).LogActivity("expired lease failure write failed", map[string]any{"item": item.ID.String()})
			continue
		}
		if n == 0 {
			continue
		}
		if err := e.queries.IncrementBatchFailed(ctx, batchsqlc.IncrementBatchFailedParams{ID: item.Batch, Updatedat: now}); err != nil {
			e.logger.Error(err).LogActivity("nfailed bump failed", map[string]any{"batch": item.Batch.String()})
		}
		failed++
		e.metrics.Record(metricWatchdogRecoveries, 1)
		e.metrics.Record(metricItemsFailed, 1)
		e.logger.LogDataChange("item failed on lease expiry", logharbour.ChangeInfo{
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
	return requeued, failed, cancelled, nil
}

// runWatchdog periodically recovers expired leases and respawns workers
// for active batches.
func (e *Engine) runWatchdog(ctx context.Context) {
	interval := time.Duration(e.config.WatchdogIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info().LogActivity("watchdog started", map[string]any{"intervalMs": e.config.WatchdogIntervalMs})
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().LogActivity("watchdog stopped", nil)
			return
		case <-ticker.C:
			requeued, failed, cancelled, err := e.RecoverExpiredLeases(ctx)
			if err != nil {
				e.logger.Error(err).LogActivity("watchdog pass failed", nil)
			} else if requeued+failed+cancelled > 0 {
				e.logger.Info().LogActivity("watchdog pass recovered leases", map[string]any{
					"requeued":  requeued,
					"failed":    failed,
					"cancelled": cancelled,
				})
			}
			e.ensureActiveWorkers(ctx)
		}
	}
}
