package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/remiges-tech/rigel/etcd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/sift/config"
)

type engineKnobs struct {
	LeaseSeconds  int    `json:"lease_seconds" yaml:"lease_seconds"`
	StorageBucket string `json:"storage_bucket" yaml:"storage_bucket"`
	PGURL         string `json:"pg_url" yaml:"pg_url"`
}

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestFileLoadsJSON(t *testing.T) {
	path := writeTempConfig(t, "sift.json",
		`{"lease_seconds":120,"storage_bucket":"resumes","pg_url":"postgres://localhost/sift"}`)

	var cfg engineKnobs
	require.NoError(t, config.LoadConfigFromFile(path, &cfg))
	assert.Equal(t, 120, cfg.LeaseSeconds)
	assert.Equal(t, "resumes", cfg.StorageBucket)
	assert.Equal(t, "postgres://localhost/sift", cfg.PGURL)
}

func TestFileLoadsYAML(t *testing.T) {
	path := writeTempConfig(t, "sift.yaml", "lease_seconds: 45\nstorage_bucket: screening\n")

	var cfg engineKnobs
	require.NoError(t, config.LoadConfigFromFile(path, &cfg))
	assert.Equal(t, 45, cfg.LeaseSeconds)
	assert.Equal(t, "screening", cfg.StorageBucket)
}

func TestFileGet(t *testing.T) {
	f, err := config.NewFile(writeTempConfig(t, "sift.json",
		`{"storage_bucket":"sift","lease_seconds":90}`))
	require.NoError(t, err)

	var cfg engineKnobs
	require.NoError(t, f.LoadConfig(&cfg))

	v, err := f.Get("storage_bucket")
	require.NoError(t, err)
	assert.Equal(t, "sift", v)

	// Non-string values come back rendered, flagged with the typed error.
	v, err = f.Get("lease_seconds")
	var notString *config.ValueNotStringError
	require.ErrorAs(t, err, &notString)
	assert.Equal(t, "90", v)

	_, err = f.Get("missing_key")
	var notFound *config.KeyNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing_key", notFound.Key)
}

func TestFileCheckRejectsEmptyPath(t *testing.T) {
	_, err := config.NewFile("")
	assert.Error(t, err)
}

func TestFileWatchUnsupported(t *testing.T) {
	f := &config.File{ConfigFilePath: "sift.json"}
	assert.Error(t, f.Watch(context.Background(), "lease_seconds", nil))
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("SIFT_LEASE_SECONDS", "120")
	n, err := config.IntFromEnv("SIFT_LEASE_SECONDS", 90)
	require.NoError(t, err)
	assert.Equal(t, 120, n)

	n, err = config.IntFromEnv("SIFT_UNSET_KNOB", 15)
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	t.Setenv("SIFT_MAX_RETRIES", "many")
	_, err = config.IntFromEnv("SIFT_MAX_RETRIES", 3)
	assert.ErrorContains(t, err, "SIFT_MAX_RETRIES")

	t.Setenv("SIFT_STORAGE_BUCKET", "resumes")
	assert.Equal(t, "resumes", config.StringFromEnv("SIFT_STORAGE_BUCKET", "sift"))
	assert.Equal(t, "sift", config.StringFromEnv("SIFT_UNSET_BUCKET", "sift"))
}

func TestNewRigelClient(t *testing.T) {
	rigelClient, err := config.NewRigelClient("localhost:2379")
	require.NoError(t, err)
	require.NotNil(t, rigelClient)

	etcdStorage, ok := rigelClient.Storage.(*etcd.EtcdStorage)
	require.True(t, ok, "expected storage to be etcd backed")
	require.NotEmpty(t, etcdStorage.Client.Endpoints())
	assert.Equal(t, "localhost:2379", etcdStorage.Client.Endpoints()[0])
}
