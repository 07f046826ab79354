// Package engine implements a durable batch screening pipeline on top of
// Postgres, Redis and an S3-compatible object store.
//
// A batch is a set of resume files analyzed against one job description.
// Items are claimed one at a time with row locks so any number of engine
// instances can work the same batch without stepping on each other. All
// item and batch state lives in Postgres; Redis only carries a read-aside
// status cache and the object store only carries the uploaded files and
// nothing else. An engine process can therefore crash at any point and a
// surviving instance's watchdog will pick up the abandoned work.
package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/remiges-tech/sift/engine/objstore"
	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
	"github.com/remiges-tech/sift/metrics"
)

// Default engine tunables, applied by New when the config leaves them zero.
const (
	SIFT_LEASE_SECONDS         = 90
	SIFT_MAX_RETRIES           = 3
	SIFT_BACKOFF_BASE_MS       = 2000
	SIFT_WATCHDOG_INTERVAL_MS  = 15000
	SIFT_BATCHSTATUS_CACHE_SEC = 60
	SIFT_STORAGE_BUCKET        = "sift"
)

// Engine owns batch processing for one process: it creates batches, runs
// one worker goroutine per active batch, recovers expired leases and
// answers the read API. Engines are safe for concurrent use and any number
// of them may run against the same database.
type Engine struct {
	db          *pgxpool.Pool
	queries     batchsqlc.Querier
	redisClient *redis.Client
	objStore    objstore.ObjectStore
	analyzer    Analyzer
	logger      *logharbour.Logger
	metrics     metrics.Metrics
	config      EngineConfig
	instanceID  string

	mu      sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	workers map[uuid.UUID]bool
	wg      sync.WaitGroup
}

// New creates an Engine with the given dependencies. The logger is
// mandatory. Zero config fields are filled with the SIFT_* defaults; a
// negative MaxRetries disables retries entirely.
func New(db *pgxpool.Pool, redisClient *redis.Client, minioClient *minio.Client, analyzer Analyzer, logger *logharbour.Logger, mtr metrics.Metrics, config *EngineConfig) *Engine {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if config == nil {
		config = &EngineConfig{}
	}
	if config.LeaseSeconds == 0 {
		config.LeaseSeconds = SIFT_LEASE_SECONDS
		logger.Warn().LogActivity("LeaseSeconds not set, using default", map[string]any{"default": SIFT_LEASE_SECONDS})
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = SIFT_MAX_RETRIES
	}
	if config.WorkerBackoffBaseMs == 0 {
		config.WorkerBackoffBaseMs = SIFT_BACKOFF_BASE_MS
	}
	if config.WatchdogIntervalMs == 0 {
		config.WatchdogIntervalMs = SIFT_WATCHDOG_INTERVAL_MS
	}
	if config.BatchStatusCacheDurSec == 0 {
		config.BatchStatusCacheDurSec = SIFT_BATCHSTATUS_CACHE_SEC
	}
	if config.StorageBucket == "" {
		config.StorageBucket = SIFT_STORAGE_BUCKET
		logger.Warn().LogActivity("StorageBucket not set, using default", map[string]any{"default": SIFT_STORAGE_BUCKET})
	}
	if mtr == nil {
		mtr = noopMetrics{}
	}
	registerEngineMetrics(mtr)

	var store objstore.ObjectStore
	if minioClient != nil {
		store = objstore.NewMinioObjectStore(minioClient)
	}
	var queries batchsqlc.Querier
	if db != nil {
		queries = batchsqlc.New(db)
	}

	return &Engine{
		db:          db,
		queries:     queries,
		redisClient: redisClient,
		objStore:    store,
		analyzer:    analyzer,
		logger:      logger,
		metrics:     mtr,
		config:      *config,
		instanceID:  newInstanceID(),
		workers:     make(map[uuid.UUID]bool),
	}
}

// newInstanceID builds a process-unique identifier in the form
// hostname-pid-timestamp-random.
func newInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "sift"
	}
	return fmt.Sprintf("%s-%d-%d-%s", hostname, os.Getpid(), time.Now().Unix(), uuid.New().String()[:8])
}

// InstanceID returns this engine's process-unique identifier. Worker IDs
// are derived from it, so leases in the database can be traced back to the
// host and process that claimed them.
func (e *Engine) InstanceID() string {
	return e.instanceID
}

// Start launches the background loops: the lease watchdog, the settlement
// sweeper and one worker per batch that is currently active in the
// database. It returns once everything is launched.
func (e *Engine) Start(ctx context.Context) error {
	if e.analyzer == nil {
		return fmt.Errorf("cannot start engine: no analyzer configured")
	}
	e.mu.Lock()
	if e.runCtx != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine already started")
	}
	e.runCtx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.runWatchdog(e.runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.runSweeper(e.runCtx)
	}()

	e.logger.Info().LogActivity("engine started", map[string]any{
		"instance":           e.instanceID,
		"leaseSeconds":       e.config.LeaseSeconds,
		"maxRetries":         e.config.MaxRetries,
		"watchdogIntervalMs": e.config.WatchdogIntervalMs,
	})

	e.ensureActiveWorkers(e.runCtx)
	return nil
}

// Shutdown stops the background loops and waits for in-flight workers to
// finish their current item, or for ctx to expire, whichever comes first.
// Items still claimed when the process dies are recovered later through
// their lease.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		e.logger.Info().LogActivity("engine stopped", map[string]any{"instance": e.instanceID})
		return nil
	case <-ctx.Done():
		e.logger.Warn().LogActivity("engine shutdown timed out with workers still running", map[string]any{"instance": e.instanceID})
		return ctx.Err()
	}
}

// ensureWorker makes sure a worker goroutine for the batch is running in
// this process. It is a no-op when one already is, or when the engine has
// not been started.
func (e *Engine) ensureWorker(batchID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runCtx == nil || e.runCtx.Err() != nil {
		return
	}
	if e.workers[batchID] {
		return
	}
	e.workers[batchID] = true
	e.metrics.Record(metricWorkersActive, float64(len(e.workers)))

	ctx := e.runCtx
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.releaseWorker(batchID)
		e.runWorker(ctx, batchID)
	}()
}

func (e *Engine) releaseWorker(batchID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.workers, batchID)
	e.metrics.Record(metricWorkersActive, float64(len(e.workers)))
}

// ensureActiveWorkers spawns workers for every batch in running status.
// Called at startup and from the watchdog loop so that batches created by
// other processes, or resumed elsewhere, get picked up here too.
func (e *Engine) ensureActiveWorkers(ctx context.Context) {
	batches, err := e.queries.GetActiveBatches(ctx)
	if err != nil {
		e.logger.Error(err).LogActivity("active batch scan failed", nil)
		return
	}
	for _, id := range batches {
		e.ensureWorker(id)
	}
}
