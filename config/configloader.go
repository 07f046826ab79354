package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/remiges-tech/rigel"
	"github.com/remiges-tech/rigel/etcd"
)

// LoadConfigFromFile loads appConfig from a JSON or YAML file.
func LoadConfigFromFile(filePath string, appConfig any) error {
	configSource, err := NewFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file config source: %w", err)
	}

	if err := Load(configSource, appConfig); err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	return nil
}

// LoadConfigFromRigel loads appConfig from the named Rigel config of the
// given app, module and schema version, stored in etcd behind the
// comma-separated endpoints.
func LoadConfigFromRigel(etcdEndpoints, appName, moduleName string, version int, configName string, appConfig any) error {
	etcdStorage, err := etcd.NewEtcdStorage(strings.Split(etcdEndpoints, ","))
	if err != nil {
		return fmt.Errorf("failed to create etcd storage: %w", err)
	}

	rigelClient := rigel.New(etcdStorage, appName, moduleName, version, configName)

	configSource := &Rigel{Client: rigelClient}
	if err := Load(configSource, appConfig); err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	return nil
}

// StringFromEnv returns the value of the environment variable name when
// it is set and non-empty, and current otherwise.
func StringFromEnv(name, current string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return current
}

// IntFromEnv returns the integer value of the environment variable name
// when it is set, and current otherwise. A value that does not parse as
// an integer is a startup error naming the variable.
func IntFromEnv(name string, current int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return current, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", name, v)
	}
	return n, nil
}
