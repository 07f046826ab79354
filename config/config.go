// Package config loads application configuration from a file or from a
// Rigel schema in etcd, behind one Config interface. On top of either
// source, environment variables can override individual engine knobs.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/remiges-tech/rigel"
	"github.com/remiges-tech/rigel/etcd"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// Config is a source from which application configuration can be loaded.
type Config interface {
	LoadConfig(c any) error
	Check() error
	Get(key string) (string, error)

	// Watch watches for changes to a key in the source and sends an Event
	// on the channel for each change.
	Watch(ctx context.Context, key string, events chan<- Event) error
}

// Event is a change to one key in the configuration source.
type Event struct {
	Key   string
	Value string
}

// Load verifies that the config source is usable and then loads the
// configuration into c.
func Load(cs Config, c any) error {
	if err := cs.Check(); err != nil {
		return err
	}
	return cs.LoadConfig(c)
}

// File loads configuration from a JSON or YAML file, chosen by the file
// extension. Extensions .yaml and .yml select YAML, everything else is
// parsed as JSON. Besides filling the caller's struct, LoadConfig keeps a
// flat map of the file's top-level keys so Get can serve ad hoc lookups.
type File struct {
	ConfigFilePath string
	Config         map[string]any
}

func NewFile(configFilePath string) (*File, error) {
	file := &File{ConfigFilePath: configFilePath}

	if err := file.Check(); err != nil {
		return nil, err
	}

	return file, nil
}

func (f *File) Check() error {
	if f.ConfigFilePath == "" {
		return fmt.Errorf("configFilePath cannot be empty")
	}

	return nil
}

func (f *File) LoadConfig(appConfig any) error {
	raw, err := os.ReadFile(f.ConfigFilePath)
	if err != nil {
		return err
	}

	flat := make(map[string]any)
	switch strings.ToLower(filepath.Ext(f.ConfigFilePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, appConfig); err != nil {
			return fmt.Errorf("parsing %s: %w", f.ConfigFilePath, err)
		}
		if err := yaml.Unmarshal(raw, &flat); err != nil {
			return fmt.Errorf("parsing %s: %w", f.ConfigFilePath, err)
		}
	default:
		if err := json.Unmarshal(raw, appConfig); err != nil {
			return fmt.Errorf("parsing %s: %w", f.ConfigFilePath, err)
		}
		if err := json.Unmarshal(raw, &flat); err != nil {
			return fmt.Errorf("parsing %s: %w", f.ConfigFilePath, err)
		}
	}
	f.Config = flat

	return nil
}

type ValueNotStringError struct {
	Key   string
	Value any
}

func (e *ValueNotStringError) Error() string {
	return fmt.Sprintf("value for key %s is not a string: %v", e.Key, e.Value)
}

type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %s not found in config", e.Key)
}

// Get retrieves a top-level value by key. String values are returned as
// is. Non-string values are rendered with fmt.Sprintf and returned
// together with a ValueNotStringError so the caller can decide whether
// the rendering is acceptable. A missing key yields KeyNotFoundError.
func (f *File) Get(key string) (string, error) {
	value, ok := f.Config[key]
	if !ok {
		return "", &KeyNotFoundError{Key: key}
	}

	strValue, ok := value.(string)
	if !ok {
		return fmt.Sprintf("%v", value), &ValueNotStringError{Key: key, Value: value}
	}

	return strValue, nil
}

// Watch is not supported for file sources.
func (f *File) Watch(ctx context.Context, key string, events chan<- Event) error {
	return fmt.Errorf("file config source does not support watch")
}

// Rigel loads configuration through a Rigel client bound to a schema and
// named config in etcd.
type Rigel struct {
	Client *rigel.Rigel
}

func (r *Rigel) Check() error {
	if r.Client == nil {
		return fmt.Errorf("rigel client is not set")
	}
	return nil
}

func (r *Rigel) LoadConfig(config any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Client.LoadConfig(ctx, config)
}

func (r *Rigel) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Client.Get(ctx, key)
}

// Watch forwards etcd changes for key onto events until ctx is done. It
// requires the client to be backed by etcd storage.
func (r *Rigel) Watch(ctx context.Context, key string, events chan<- Event) error {
	if err := r.Check(); err != nil {
		return err
	}
	storage, ok := r.Client.Storage.(*etcd.EtcdStorage)
	if !ok {
		return fmt.Errorf("rigel config source requires etcd storage for watch")
	}

	watchCh := storage.Client.Watch(ctx, key)
	go func() {
		for resp := range watchCh {
			for _, ev := range resp.Events {
				events <- Event{Key: string(ev.Kv.Key), Value: string(ev.Kv.Value)}
			}
		}
	}()
	return nil
}

// NewRigelClient creates a Rigel client backed by the given etcd
// endpoints, given as a comma-separated list. The client does not dial
// until first use.
func NewRigelClient(etcdEndpoints string) (*rigel.Rigel, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(etcdEndpoints, ","),
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("creating etcd client: %w", err)
	}

	etcdStorage := &etcd.EtcdStorage{Client: cli}
	return rigel.NewWithStorage(etcdStorage), nil
}
