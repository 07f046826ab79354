// Command siftctl is the operator CLI for sift. It talks straight to the
// backing stores with the same engine code the daemon runs, so it works
// even when no daemon is up. Batches created here sit pending until a
// running daemon's watchdog notices them.
//
// Usage:
//
//	siftctl create -owner acme -jd jd.txt resume1.pdf resume2.pdf
//	siftctl pause|resume|cancel -owner acme -batch <id>
//	siftctl status -owner acme -batch <id>
//	siftctl items -owner acme -batch <id> [-status failed]
//	siftctl teardown -owner acme -batch <id>
//	siftctl migrate
//
// Exit codes: 0 success, 2 permission denied, 3 not found, 4 not applicable
// in the batch's current state, 5 a backing system is unavailable, 1 any
// other error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/remiges-tech/sift/config"
	"github.com/remiges-tech/sift/engine"
)

const (
	exitOK            = 0
	exitErr           = 1
	exitForbidden     = 2
	exitNotFound      = 3
	exitNotApplicable = 4
	exitUpstream      = 5
)

// errNotApplicable marks a control or teardown request the batch's current
// state makes meaningless. It has its own exit code.
var errNotApplicable = errors.New("not applicable in the batch's current state")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitErr
	}
	mode := args[0]

	fs := flag.NewFlagSet(mode, flag.ExitOnError)
	owner := fs.String("owner", os.Getenv("SIFT_OWNER"), "owner on whose behalf to act")
	batchID := fs.String("batch", "", "batch ID")
	jdPath := fs.String("jd", "", "path to the job description file (create)")
	statusFilter := fs.String("status", "", "item status filter (items)")
	pgURL := fs.String("pg", config.StringFromEnv("SIFT_PG_URL", "host=localhost port=5432 user=sift password=sift dbname=sift sslmode=disable"), "Postgres connection string")
	redisAddr := fs.String("redis", config.StringFromEnv("SIFT_REDIS_ADDR", "localhost:6379"), "Redis address")
	minioEndpoint := fs.String("minio", config.StringFromEnv("SIFT_MINIO_ENDPOINT", "localhost:9000"), "MinIO endpoint")
	minioAccess := fs.String("minio-access", config.StringFromEnv("SIFT_MINIO_ACCESS", "minioadmin"), "MinIO access key")
	minioSecret := fs.String("minio-secret", config.StringFromEnv("SIFT_MINIO_SECRET", "minioadmin"), "MinIO secret key")
	bucket := fs.String("bucket", config.StringFromEnv("SIFT_STORAGE_BUCKET", engine.SIFT_STORAGE_BUCKET), "object store bucket")
	fs.Parse(args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if mode == "migrate" {
		return report(migrate(ctx, *pgURL))
	}

	pool, err := pgxpool.New(ctx, *pgURL)
	if err != nil {
		return report(fmt.Errorf("%w: %v", engine.ErrUpstream, err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return report(fmt.Errorf("%w: cannot reach Postgres: %v", engine.ErrUpstream, err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer redisClient.Close()

	minioClient, err := minio.New(*minioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(*minioAccess, *minioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return report(fmt.Errorf("%w: %v", engine.ErrUpstream, err))
	}

	lctx := logharbour.NewLoggerContext(logharbour.DefaultPriority)
	logger := logharbour.NewLogger(lctx, "siftctl", os.Stderr)

	// No analyzer and no Start: the CLI only mutates state, processing is
	// the daemon's job.
	eng := engine.New(pool, redisClient, minioClient, nil, logger, nil, &engine.EngineConfig{
		StorageBucket: *bucket,
	})

	switch mode {
	case "create":
		return report(create(ctx, eng, *owner, *jdPath, fs.Args()))
	case "pause", "resume", "cancel":
		return report(control(ctx, eng, *owner, *batchID, engine.ControlAction(mode)))
	case "status":
		return report(status(ctx, eng, *owner, *batchID))
	case "items":
		return report(items(ctx, eng, *owner, *batchID, *statusFilter))
	case "teardown":
		return report(teardown(ctx, eng, *owner, *batchID))
	default:
		usage()
		return exitErr
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: siftctl <create|pause|resume|cancel|status|items|teardown|migrate> [flags]")
	fmt.Fprintln(os.Stderr, "run 'siftctl <mode> -h' for the mode's flags")
}

// report prints the error, if any, and converts it to the exit code.
func report(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, engine.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "permission denied:", err)
		return exitForbidden
	case errors.Is(err, engine.ErrBatchNotFound):
		fmt.Fprintln(os.Stderr, "not found:", err)
		return exitNotFound
	case errors.Is(err, errNotApplicable), errors.Is(err, engine.ErrBatchActive):
		fmt.Fprintln(os.Stderr, err)
		return exitNotApplicable
	case errors.Is(err, engine.ErrUpstream):
		fmt.Fprintln(os.Stderr, "upstream unavailable:", err)
		return exitUpstream
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitErr
	}
}

func migrate(ctx context.Context, pgURL string) error {
	conn, err := pgx.Connect(ctx, pgURL)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrUpstream, err)
	}
	defer conn.Close(ctx)
	if err := engine.MigrateDatabase(ctx, conn); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrUpstream, err)
	}
	fmt.Println("database schema is up to date")
	return nil
}

func create(ctx context.Context, eng *engine.Engine, owner, jdPath string, resumePaths []string) error {
	if jdPath == "" {
		return errors.New("create needs -jd <file>")
	}
	if len(resumePaths) == 0 {
		return errors.New("create needs at least one resume file argument")
	}
	jd, err := os.ReadFile(jdPath)
	if err != nil {
		return fmt.Errorf("cannot read job description: %w", err)
	}

	files := make([]engine.FileInput_t, 0, len(resumePaths))
	for _, p := range resumePaths {
		contents, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("cannot read resume %q: %w", p, err)
		}
		files = append(files, engine.FileInput_t{Filename: p, Contents: contents})
	}

	batchID, err := eng.BatchCreate(ctx, owner, string(jd), files)
	if err != nil {
		return err
	}
	fmt.Println(batchID)
	return nil
}

func control(ctx context.Context, eng *engine.Engine, owner, batchID string, action engine.ControlAction) error {
	if batchID == "" {
		return errors.New("missing -batch")
	}
	outcome, err := eng.BatchControl(ctx, owner, batchID, action)
	if err != nil {
		return err
	}
	if outcome == engine.OutcomeNotApplicable {
		return fmt.Errorf("%s: %w", action, errNotApplicable)
	}
	fmt.Printf("%s applied to batch %s\n", action, batchID)
	return nil
}

func status(ctx context.Context, eng *engine.Engine, owner, batchID string) error {
	if batchID == "" {
		return errors.New("missing -batch")
	}
	b, err := eng.BatchGet(ctx, owner, batchID)
	if err != nil {
		return err
	}
	fmt.Printf("batch:     %s\n", b.ID)
	fmt.Printf("status:    %s\n", b.Status)
	fmt.Printf("total:     %d\n", b.NTotal)
	fmt.Printf("complete:  %d\n", b.NComplete)
	fmt.Printf("failed:    %d\n", b.NFailed)
	fmt.Printf("cancelled: %d\n", b.NCancelled)
	fmt.Printf("skipped:   %d\n", b.NSkipped)
	fmt.Printf("created:   %s\n", b.Reqat.Format(time.RFC3339))
	if !b.Doneat.IsZero() {
		fmt.Printf("done:      %s\n", b.Doneat.Format(time.RFC3339))
	}
	return nil
}

func items(ctx context.Context, eng *engine.Engine, owner, batchID, statusFilter string) error {
	if batchID == "" {
		return errors.New("missing -batch")
	}
	list, err := eng.ItemList(ctx, owner, batchID, statusFilter)
	if err != nil {
		return err
	}
	for _, it := range list {
		line := fmt.Sprintf("%s  %-10s  retries=%d  %s", it.ID, it.Status, it.NRetries, it.Filename)
		if it.Errcode != "" {
			line += fmt.Sprintf("  [%s: %s]", it.Errcode, it.Errmsg)
		}
		fmt.Println(line)
	}
	if len(list) == 0 {
		fmt.Println("(no items)")
	}
	return nil
}

func teardown(ctx context.Context, eng *engine.Engine, owner, batchID string) error {
	if batchID == "" {
		return errors.New("missing -batch")
	}
	if err := eng.BatchTeardown(ctx, owner, batchID); err != nil {
		return err
	}
	fmt.Printf("batch %s torn down\n", batchID)
	return nil
}
