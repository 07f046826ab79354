package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
)

func ts(t time.Time) pgtype.Timestamp {
	return pgtype.Timestamp{Time: t, Valid: true}
}

func txt(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// sanitizeFilename strips any directory components a client may have sent
// along with the upload.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Base(name)
}

// BatchCreate registers a new screening batch: it deduplicates the uploaded
// files by content hash, stores the accepted ones in the object store,
// records the batch and its items in one transaction and starts processing.
// It returns the new batch ID.
func (e *Engine) BatchCreate(ctx context.Context, owner, jd string, files []FileInput_t) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", &ValidationError{Field: "owner", Details: "must not be empty"}
	}
	if strings.Contains(owner, "|") {
		return "", &ValidationError{Field: "owner", Details: "must not contain '|'"}
	}
	if strings.TrimSpace(jd) == "" {
		return "", &ValidationError{Field: "jd", Details: "must not be empty"}
	}
	if len(files) == 0 {
		return "", &ValidationError{Field: "files", Details: "must contain at least one file"}
	}
	for i, f := range files {
		if sanitizeFilename(f.Filename) == "" || strings.TrimSpace(f.Filename) == "" {
			return "", &ValidationError{Field: "files", Details: fmt.Sprintf("file %d has no usable filename", i)}
		}
		if len(f.Contents) == 0 {
			return "", &ValidationError{Field: "files", Details: fmt.Sprintf("file %q is empty", f.Filename)}
		}
	}

	batchID := uuid.New()

	// First occurrence of each content hash wins, later duplicates are
	// only counted.
	type accepted struct {
		itemID   uuid.UUID
		filename string
		fileref  string
		filehash string
		contents []byte
	}
	seen := make(map[string]bool)
	var items []accepted
	var nskipped int32
	for _, f := range files {
		hash := ContentHash(f.Contents)
		if seen[hash] {
			nskipped++
			continue
		}
		seen[hash] = true
		itemID := uuid.New()
		name := sanitizeFilename(f.Filename)
		items = append(items, accepted{
			itemID:   itemID,
			filename: name,
			fileref:  fmt.Sprintf("%s/%s/%s", batchID, itemID, name),
			filehash: hash,
			contents: f.Contents,
		})
	}

	// Upload before touching the database so a failed upload leaves no
	// batch record behind. Any failure from here until the commit releases
	// the uploaded objects again, otherwise nothing would reference them.
	created := false
	defer func() {
		if !created {
			e.releaseUploads(ctx, batchID)
		}
	}()
	for _, it := range items {
		contentType := mimetype.Detect(it.contents).String()
		err := e.objStore.Put(ctx, e.config.StorageBucket, it.fileref, bytes.NewReader(it.contents), int64(len(it.contents)), contentType)
		if err != nil {
			return "", &UpstreamError{System: "objstore", Err: err}
		}
	}

	now := time.Now().UTC()
	status := batchsqlc.BatchStatusEnumRunning
	doneat := pgtype.Timestamp{}
	if len(items) == 0 {
		status = batchsqlc.BatchStatusEnumComplete
		doneat = ts(now)
	}

	maxRetries := int32(e.config.MaxRetries)
	if maxRetries < 0 {
		maxRetries = 0
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return "", &UpstreamError{System: "db", Err: err}
	}
	defer tx.Rollback(ctx)
	txQueries := batchsqlc.New(tx)

	_, err = txQueries.InsertIntoBatches(ctx, batchsqlc.InsertIntoBatchesParams{
		ID:       batchID,
		Owner:    owner,
		Status:   status,
		Jd:       jd,
		Ntotal:   int32(len(items)),
		Nskipped: nskipped,
		Reqat:    ts(now),
		Doneat:   doneat,
	})
	if err != nil {
		return "", &UpstreamError{System: "db", Err: err}
	}

	if len(items) > 0 {
		params := batchsqlc.BulkInsertIntoItemsParams{
			ID:         make([]uuid.UUID, len(items)),
			Batch:      make([]uuid.UUID, len(items)),
			Filename:   make([]string, len(items)),
			Fileref:    make([]string, len(items)),
			Filehash:   make([]string, len(items)),
			Updatedat:  make([]pgtype.Timestamp, len(items)),
			Maxretries: make([]int32, len(items)),
			Reqat:      make([]pgtype.Timestamp, len(items)),
		}
		for i, it := range items {
			params.ID[i] = it.itemID
			params.Batch[i] = batchID
			params.Filename[i] = it.filename
			params.Fileref[i] = it.fileref
			params.Filehash[i] = it.filehash
			// Stagger updatedat so claiming preserves upload order.
			params.Updatedat[i] = ts(now.Add(time.Duration(i) * time.Microsecond))
			params.Maxretries[i] = maxRetries
			params.Reqat[i] = ts(now)
		}
		if _, err := txQueries.BulkInsertIntoItems(ctx, params); err != nil {
			return "", &UpstreamError{System: "db", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", &UpstreamError{System: "db", Err: err}
	}
	created = true

	e.logger.LogDataChange("batch created", logharbour.ChangeInfo{
		Entity: "Batch",
		Op:     "Create",
		Changes: []logharbour.ChangeDetail{
			{Field: "status", OldVal: "none", NewVal: string(status)},
		},
	})
	e.logger.Info().LogActivity("batch created", map[string]any{
		"batch":    batchID.String(),
		"owner":    owner,
		"ntotal":   len(items),
		"nskipped": nskipped,
	})
	e.metrics.Record(metricBatchesCreated, 1)
	if err := e.updateStatusInRedis(ctx, batchID, owner, status); err != nil {
		e.logger.Warn().LogActivity("batch status cache write failed", map[string]any{
			"batch": batchID.String(),
			"error": err.Error(),
		})
	}
	if status == batchsqlc.BatchStatusEnumRunning {
		e.ensureWorker(batchID)
	}
	return batchID.String(), nil
}

// releaseUploads deletes the stored files of a batch whose creation failed
// partway. Best effort: no batch row references the objects, so on error
// they only waste space until an operator sweeps the bucket.
func (e *Engine) releaseUploads(ctx context.Context, batchID uuid.UUID) {
	if err := e.objStore.RemoveAll(ctx, e.config.StorageBucket, batchID.String()+"/"); err != nil {
		e.logger.Warn().LogActivity("failed to release uploads of a failed batch create", map[string]any{
			"batch": batchID.String(),
			"error": err.Error(),
		})
	}
}

// BatchControl applies pause, resume or cancel to a batch after checking
// ownership. Requests that find the batch already past the point where the
// action means anything return OutcomeNotApplicable with no error and no
// state change.
func (e *Engine) BatchControl(ctx context.Context, owner, batchID string, action ControlAction) (ControlOutcome, error) {
	batch, err := e.fetchOwnedBatch(ctx, owner, batchID)
	if err != nil {
		return "", err
	}
	now := ts(time.Now().UTC())

	switch action {
	case ActionPause:
		n, err := e.queries.PauseBatch(ctx, batchsqlc.PauseBatchParams{ID: batch.ID, Updatedat: now})
		if err != nil {
			return "", &UpstreamError{System: "db", Err: err}
		}
		if n == 0 {
			return OutcomeNotApplicable, nil
		}
		e.logBatchTransition(batch.ID, batch.Status, batchsqlc.BatchStatusEnumPaused)
		e.cacheBatchStatus(ctx, batch.ID, owner, batchsqlc.BatchStatusEnumPaused)
		return OutcomeApplied, nil

	case ActionResume:
		n, err := e.queries.ResumeBatch(ctx, batchsqlc.ResumeBatchParams{ID: batch.ID, Updatedat: now})
		if err != nil {
			return "", &UpstreamError{System: "db", Err: err}
		}
		if n == 0 {
			return OutcomeNotApplicable, nil
		}
		e.logBatchTransition(batch.ID, batch.Status, batchsqlc.BatchStatusEnumRunning)
		e.cacheBatchStatus(ctx, batch.ID, owner, batchsqlc.BatchStatusEnumRunning)
		e.ensureWorker(batch.ID)
		return OutcomeApplied, nil

	case ActionCancel:
		return e.cancelBatch(ctx, batch, now)

	default:
		return "", &ValidationError{Field: "action", Details: "must be pause, resume or cancel"}
	}
}

// cancelBatch marks the batch cancelled and sweeps its pending items in one
// transaction. Items already claimed by a worker are left to finish; their
// results still land, but the batch can never reach complete status.
func (e *Engine) cancelBatch(ctx context.Context, batch batchsqlc.Batch, now pgtype.Timestamp) (ControlOutcome, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return "", &UpstreamError{System: "db", Err: err}
	}
	defer tx.Rollback(ctx)
	txQueries := batchsqlc.New(tx)

	n, err := txQueries.MarkBatchCancelled(ctx, batchsqlc.MarkBatchCancelledParams{ID: batch.ID, Updatedat: now})
	if err != nil {
		return "", &UpstreamError{System: "db", Err: err}
	}
	if n == 0 {
		return OutcomeNotApplicable, nil
	}

	swept, err := txQueries.CancelPendingItems(ctx, batchsqlc.CancelPendingItemsParams{Batch: batch.ID, Updatedat: now})
	if err != nil {
		return "", &UpstreamError{System: "db", Err: err}
	}
	if swept > 0 {
		err = txQueries.AddBatchCancelled(ctx, batchsqlc.AddBatchCancelledParams{
			ID:         batch.ID,
			Ncancelled: int32(swept),
			Updatedat:  now,
		})
		if err != nil {
			return "", &UpstreamError{System: "db", Err: err}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", &UpstreamError{System: "db", Err: err}
	}

	e.logBatchTransition(batch.ID, batch.Status, batchsqlc.BatchStatusEnumCancelled)
	e.logger.Info().LogActivity("batch cancelled", map[string]any{
		"batch":        batch.ID.String(),
		"sweptPending": swept,
	})
	e.cacheBatchStatus(ctx, batch.ID, batch.Owner, batchsqlc.BatchStatusEnumCancelled)
	return OutcomeApplied, nil
}

// BatchGet returns the batch's full details including counters, straight
// from the database. The status cache is re-primed on the way out.
func (e *Engine) BatchGet(ctx context.Context, owner, batchID string) (BatchDetails_t, error) {
	batch, err := e.fetchOwnedBatch(ctx, owner, batchID)
	if err != nil {
		return BatchDetails_t{}, err
	}
	e.cacheBatchStatus(ctx, batch.ID, batch.Owner, batch.Status)
	return makeBatchDetails(batch), nil
}

// BatchQuickStatus returns just the batch status, served from the Redis
// cache when possible. Cache misses and cache errors fall through to the
// database and refresh the cache.
func (e *Engine) BatchQuickStatus(ctx context.Context, owner, batchID string) (BatchStatus_t, error) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return BatchUnknown, &ValidationError{Field: "batch_id", Details: "must be a valid UUID"}
	}

	val, err := e.redisClient.Get(ctx, BatchStatusKey(id.String())).Result()
	if err == nil {
		cachedOwner, cachedStatus, ok := strings.Cut(val, "|")
		if ok {
			if cachedOwner != owner {
				return BatchUnknown, fmt.Errorf("%w: batch %s", ErrPermissionDenied, batchID)
			}
			return getBatchStatus(batchsqlc.BatchStatusEnum(cachedStatus)), nil
		}
	} else if err != redis.Nil {
		e.logger.Warn().LogActivity("batch status cache read failed", map[string]any{
			"batch": batchID,
			"error": err.Error(),
		})
	}

	batch, err := e.fetchOwnedBatch(ctx, owner, batchID)
	if err != nil {
		return BatchUnknown, err
	}
	e.cacheBatchStatus(ctx, batch.ID, batch.Owner, batch.Status)
	return getBatchStatus(batch.Status), nil
}

// ItemList returns the batch's items, optionally filtered to one status.
// Items are listed in creation order.
func (e *Engine) ItemList(ctx context.Context, owner, batchID, statusFilter string) ([]ItemDetails_t, error) {
	batch, err := e.fetchOwnedBatch(ctx, owner, batchID)
	if err != nil {
		return nil, err
	}

	var rows []batchsqlc.Item
	if statusFilter == "" {
		rows, err = e.queries.GetItemsByBatchID(ctx, batch.ID)
	} else {
		status := batchsqlc.ItemStatusEnum(statusFilter)
		if !status.Valid() {
			return nil, &ValidationError{Field: "status", Details: fmt.Sprintf("unknown item status %q", statusFilter)}
		}
		rows, err = e.queries.GetItemsByBatchIDAndStatus(ctx, batchsqlc.GetItemsByBatchIDAndStatusParams{
			Batch:  batch.ID,
			Status: status,
		})
	}
	if err != nil {
		return nil, &UpstreamError{System: "db", Err: err}
	}

	details := make([]ItemDetails_t, 0, len(rows))
	for _, row := range rows {
		details = append(details, makeItemDetails(row))
	}
	return details, nil
}

// BatchTeardown removes every trace of a terminal batch: item rows, the
// batch row, stored files and the cache entry, in that order. Running or
// paused batches are refused. Tearing down a batch that is already gone
// succeeds, so a teardown interrupted halfway can simply be repeated.
func (e *Engine) BatchTeardown(ctx context.Context, owner, batchID string) error {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return &ValidationError{Field: "batch_id", Details: "must be a valid UUID"}
	}

	batch, err := e.queries.GetBatchByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		// The rows are already gone. Clear whatever derived state is
		// left so an interrupted teardown converges on repeat.
		return e.removeBatchArtifacts(ctx, id)
	}
	if err != nil {
		return &UpstreamError{System: "db", Err: err}
	}
	if batch.Owner != owner {
		return fmt.Errorf("%w: batch %s", ErrPermissionDenied, batchID)
	}
	if batch.Status == batchsqlc.BatchStatusEnumRunning || batch.Status == batchsqlc.BatchStatusEnumPaused {
		return fmt.Errorf("%w: status is %s", ErrBatchActive, batch.Status)
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return &UpstreamError{System: "db", Err: err}
	}
	defer tx.Rollback(ctx)
	txQueries := batchsqlc.New(tx)
	if err := txQueries.DeleteItemsByBatch(ctx, id); err != nil {
		return &UpstreamError{System: "db", Err: err}
	}
	if _, err := txQueries.DeleteBatch(ctx, id); err != nil {
		return &UpstreamError{System: "db", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &UpstreamError{System: "db", Err: err}
	}

	if err := e.removeBatchArtifacts(ctx, id); err != nil {
		return err
	}
	e.logger.LogDataChange("batch torn down", logharbour.ChangeInfo{
		Entity: "Batch",
		Op:     "Delete",
		Changes: []logharbour.ChangeDetail{
			{Field: "status", OldVal: string(batch.Status), NewVal: "none"},
		},
	})
	return nil
}

// removeBatchArtifacts deletes the batch's stored files and its cache
// entry. Both operations are idempotent.
func (e *Engine) removeBatchArtifacts(ctx context.Context, batchID uuid.UUID) error {
	if err := e.objStore.RemoveAll(ctx, e.config.StorageBucket, batchID.String()+"/"); err != nil {
		return &UpstreamError{System: "objstore", Err: err}
	}
	if err := e.redisClient.Del(ctx, BatchStatusKey(batchID.String())).Err(); err != nil {
		e.logger.Warn().LogActivity("batch status cache delete failed", map[string]any{
			"batch": batchID.String(),
			"error": err.Error(),
		})
	}
	return nil
}

// fetchOwnedBatch loads a batch and verifies the caller owns it.
func (e *Engine) fetchOwnedBatch(ctx context.Context, owner, batchID string) (batchsqlc.Batch, error) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return batchsqlc.Batch{}, &ValidationError{Field: "batch_id", Details: "must be a valid UUID"}
	}
	batch, err := e.queries.GetBatchByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return batchsqlc.Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if err != nil {
		return batchsqlc.Batch{}, &UpstreamError{System: "db", Err: err}
	}
	if batch.Owner != owner {
		return batchsqlc.Batch{}, fmt.Errorf("%w: batch %s", ErrPermissionDenied, batchID)
	}
	return batch, nil
}

func (e *Engine) logBatchTransition(batchID uuid.UUID, from, to batchsqlc.BatchStatusEnum) {
	e.logger.LogDataChange("batch status updated", logharbour.ChangeInfo{
		Entity: "Batch",
		Op:     "StatusChange",
		Changes: []logharbour.ChangeDetail{
			{Field: "status", OldVal: string(from), NewVal: string(to)},
		},
	})
}

// cacheBatchStatus writes the status cache entry and logs on failure
// instead of propagating it. The cache is best effort, reads fall back to
// the database anyway.
func (e *Engine) cacheBatchStatus(ctx context.Context, batchID uuid.UUID, owner string, status batchsqlc.BatchStatusEnum) {
	if err := e.updateStatusInRedis(ctx, batchID, owner, status); err != nil {
		e.logger.Warn().LogActivity("batch status cache write failed", map[string]any{
			"batch": batchID.String(),
			"error": err.Error(),
		})
	}
}

func isTerminalBatchStatus(status batchsqlc.BatchStatusEnum) bool {
	return status == batchsqlc.BatchStatusEnumCancelled || status == batchsqlc.BatchStatusEnumComplete
}

// updateStatusInRedis caches "owner|status" for the batch under a WATCH so
// concurrent writers cannot interleave. Terminal statuses are kept 100
// times longer and are never overwritten by a non-terminal write racing in
// late.
func (e *Engine) updateStatusInRedis(ctx context.Context, batchID uuid.UUID, owner string, status batchsqlc.BatchStatusEnum) error {
	redisKey := BatchStatusKey(batchID.String())
	newVal := owner + "|" + string(status)

	expirySec := e.config.BatchStatusCacheDurSec
	if isTerminalBatchStatus(status) {
		expirySec = 100 * e.config.BatchStatusCacheDurSec
	}
	expiry := time.Duration(expirySec) * time.Second

	err := e.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, redisKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if current == newVal {
			return nil
		}
		if _, currentStatus, ok := strings.Cut(current, "|"); ok {
			if isTerminalBatchStatus(batchsqlc.BatchStatusEnum(currentStatus)) && !isTerminalBatchStatus(status) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, newVal, expiry)
			return nil
		})
		return err
	}, redisKey)
	if err != nil {
		return fmt.Errorf("failed to update status in Redis: %v", err)
	}
	return nil
}
