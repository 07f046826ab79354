// Command siftd is the sift daemon: it serves the batch control API and
// runs the screening engine, so one process both accepts uploads and works
// through them. Multiple siftd processes can share the same Postgres,
// Redis and MinIO; the engine's claims keep them from colliding.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/remiges-tech/sift/anthropic"
	"github.com/remiges-tech/sift/batchsvc"
	"github.com/remiges-tech/sift/config"
	"github.com/remiges-tech/sift/engine"
	"github.com/remiges-tech/sift/engine/objstore"
	"github.com/remiges-tech/sift/metrics"
	"github.com/remiges-tech/sift/router"
	"github.com/remiges-tech/sift/service"
)

// AppConfig is everything siftd reads from its config source. Engine knobs
// can additionally be overridden per process through SIFT_* environment
// variables.
type AppConfig struct {
	PGURL          string `json:"pg_url" yaml:"pg_url"`
	RedisAddr      string `json:"redis_addr" yaml:"redis_addr"`
	MinioEndpoint  string `json:"minio_endpoint" yaml:"minio_endpoint"`
	MinioAccess    string `json:"minio_access" yaml:"minio_access"`
	MinioSecret    string `json:"minio_secret" yaml:"minio_secret"`
	MinioSecure    bool   `json:"minio_secure" yaml:"minio_secure"`
	HTTPPort       int    `json:"http_port" yaml:"http_port"`
	AnthropicModel string `json:"anthropic_model" yaml:"anthropic_model"`

	LeaseSeconds        int    `json:"lease_seconds" yaml:"lease_seconds"`
	MaxRetries          int    `json:"max_retries" yaml:"max_retries"`
	WorkerBackoffBaseMs int    `json:"worker_backoff_base_ms" yaml:"worker_backoff_base_ms"`
	WatchdogIntervalMs  int    `json:"watchdog_interval_ms" yaml:"watchdog_interval_ms"`
	BatchStatusCacheSec int    `json:"batch_status_cache_sec" yaml:"batch_status_cache_sec"`
	StorageBucket       string `json:"storage_bucket" yaml:"storage_bucket"`
}

func main() {
	configFile := flag.String("config", "", "path to a JSON or YAML config file")
	rigelEndpoints := flag.String("rigel", "", "etcd endpoints of the Rigel config store; used instead of -config")
	rigelVersion := flag.Int("rigel-version", 1, "Rigel schema version")
	rigelConfigName := flag.String("rigel-config", "dev", "Rigel config name")
	migrateFlag := flag.Bool("migrate", false, "run database migrations before starting")
	fakeAnalyzer := flag.Bool("fake-analyzer", false, "use a deterministic in-process analyzer instead of the Anthropic API")
	flag.Parse()

	var appConfig AppConfig
	switch {
	case *rigelEndpoints != "":
		err := config.LoadConfigFromRigel(*rigelEndpoints, "sift", "engine", *rigelVersion, *rigelConfigName, &appConfig)
		if err != nil {
			log.Fatalf("failed to load config from Rigel: %v", err)
		}
	case *configFile != "":
		if err := config.LoadConfigFromFile(*configFile, &appConfig); err != nil {
			log.Fatalf("failed to load config file: %v", err)
		}
	}
	applyDefaults(&appConfig)
	if err := applyEnvOverrides(&appConfig); err != nil {
		log.Fatal(err)
	}

	fallbackWriter := logharbour.NewFallbackWriter(os.Stdout, os.Stderr)
	lctx := logharbour.NewLoggerContext(logharbour.DefaultPriority)
	logger := logharbour.NewLogger(lctx, "sift", fallbackWriter)

	ctx := context.Background()

	if *migrateFlag {
		conn, err := pgx.Connect(ctx, appConfig.PGURL)
		if err != nil {
			log.Fatalf("failed to connect for migration: %v", err)
		}
		if err := engine.MigrateDatabase(ctx, conn); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		conn.Close(ctx)
		logger.Info().LogActivity("database migrated", nil)
	}

	pool, err := pgxpool.New(ctx, appConfig.PGURL)
	if err != nil {
		log.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("cannot reach Postgres at startup: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddr})
	defer redisClient.Close()

	minioClient, err := minio.New(appConfig.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(appConfig.MinioAccess, appConfig.MinioSecret, ""),
		Secure: appConfig.MinioSecure,
	})
	if err != nil {
		log.Fatalf("failed to create MinIO client: %v", err)
	}
	ensureBucket(ctx, minioClient, appConfig.StorageBucket)

	var analyzer engine.Analyzer
	if *fakeAnalyzer {
		logger.Warn().LogActivity("using the fake analyzer, no resumes will reach the model", nil)
		analyzer = fakeVerdictAnalyzer{}
	} else {
		// The engine schedules retries itself, so the SDK must not add
		// its own on top.
		client := sdk.NewClient(option.WithMaxRetries(0))
		store := objstore.NewMinioObjectStore(minioClient)
		analyzer = anthropic.NewAnalyzer(client, store, appConfig.StorageBucket, appConfig.AnthropicModel)
	}

	m := metrics.NewPrometheusMetrics()

	eng := engine.New(pool, redisClient, minioClient, analyzer, logger, m, &engine.EngineConfig{
		LeaseSeconds:           appConfig.LeaseSeconds,
		MaxRetries:             appConfig.MaxRetries,
		WorkerBackoffBaseMs:    appConfig.WorkerBackoffBaseMs,
		WatchdogIntervalMs:     appConfig.WatchdogIntervalMs,
		BatchStatusCacheDurSec: appConfig.BatchStatusCacheSec,
		StorageBucket:          appConfig.StorageBucket,
	})
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("failed to start engine: %v", err)
	}

	r, err := router.SetupRouter(logger, 0)
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}
	r.GET("/metrics", gin.WrapH(m.Handler()))

	s := service.NewService(r).
		WithLogger(logger).
		WithDatabase(pool).
		WithDependency(batchsvc.EngineDependencyKey, eng)
	batchsvc.RegisterBatchHandlers(s)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", appConfig.HTTPPort),
		Handler: r,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
	logger.Info().LogActivity("siftd listening", map[string]any{
		"port":     appConfig.HTTPPort,
		"instance": eng.InstanceID(),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().LogActivity("shutting down", map[string]any{"signal": sig.String()})

	// Stop taking requests first, then let in-flight items finish. Items
	// still claimed when the deadline hits are recovered via their lease.
	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelHTTP()
	if err := server.Shutdown(httpCtx); err != nil {
		logger.Warn().LogActivity("HTTP drain timed out", map[string]any{"error": err.Error()})
	}
	engCtx, cancelEng := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelEng()
	if err := eng.Shutdown(engCtx); err != nil {
		logger.Warn().LogActivity("engine shutdown incomplete", map[string]any{"error": err.Error()})
	}
}

func applyDefaults(c *AppConfig) {
	if c.PGURL == "" {
		c.PGURL = "host=localhost port=5432 user=sift password=sift dbname=sift sslmode=disable"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.MinioEndpoint == "" {
		c.MinioEndpoint = "localhost:9000"
	}
	if c.MinioAccess == "" {
		c.MinioAccess = "minioadmin"
	}
	if c.MinioSecret == "" {
		c.MinioSecret = "minioadmin"
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.StorageBucket == "" {
		c.StorageBucket = engine.SIFT_STORAGE_BUCKET
	}
}

// applyEnvOverrides lets an operator override individual knobs without
// touching the shared config. A malformed value fails startup naming the
// variable rather than silently running with a default.
func applyEnvOverrides(c *AppConfig) error {
	var err error
	c.PGURL = config.StringFromEnv("SIFT_PG_URL", c.PGURL)
	c.RedisAddr = config.StringFromEnv("SIFT_REDIS_ADDR", c.RedisAddr)
	c.MinioEndpoint = config.StringFromEnv("SIFT_MINIO_ENDPOINT", c.MinioEndpoint)
	c.MinioAccess = config.StringFromEnv("SIFT_MINIO_ACCESS", c.MinioAccess)
	c.MinioSecret = config.StringFromEnv("SIFT_MINIO_SECRET", c.MinioSecret)
	c.StorageBucket = config.StringFromEnv("SIFT_STORAGE_BUCKET", c.StorageBucket)
	c.AnthropicModel = config.StringFromEnv("SIFT_ANTHROPIC_MODEL", c.AnthropicModel)
	if c.LeaseSeconds, err = config.IntFromEnv("SIFT_LEASE_SECONDS", c.LeaseSeconds); err != nil {
		return err
	}
	if c.MaxRetries, err = config.IntFromEnv("SIFT_MAX_RETRIES", c.MaxRetries); err != nil {
		return err
	}
	if c.WorkerBackoffBaseMs, err = config.IntFromEnv("SIFT_BACKOFF_BASE_MS", c.WorkerBackoffBaseMs); err != nil {
		return err
	}
	if c.WatchdogIntervalMs, err = config.IntFromEnv("SIFT_WATCHDOG_INTERVAL_MS", c.WatchdogIntervalMs); err != nil {
		return err
	}
	if c.BatchStatusCacheSec, err = config.IntFromEnv("SIFT_STATUS_CACHE_SEC", c.BatchStatusCacheSec); err != nil {
		return err
	}
	return nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) {
	err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, errExists := client.BucketExists(ctx, bucket)
		if errExists != nil || !exists {
			log.Fatalf("failed to create bucket %q: %v", bucket, err)
		}
	}
}

// fakeVerdictAnalyzer answers every resume with the same advance verdict.
// It exists so the full pipeline can be exercised locally without an API
// key or model spend.
type fakeVerdictAnalyzer struct{}

func (fakeVerdictAnalyzer) Analyze(ctx context.Context, fileref string, jd string) (engine.JSONstr, error) {
	return engine.NewJSONstr(`{"verdict": "advance", "score": 75, "strengths": ["fake analyzer"], "gaps": [], "summary": "deterministic local verdict"}`)
}
