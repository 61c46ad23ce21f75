package cliconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/appkeeper/internal/appconfig"
)

// DefaultTimeout bounds a single administrative command.
const DefaultTimeout = 2 * time.Minute

// Config holds CLI configuration for appkeeper. Typed settings map onto
// application properties; anything else is passed through a properties file,
// the [properties] table of the config file, or --set. Typed settings left
// at their zero value defer to those properties.
type Config struct {
	PropertiesFile string
	Sets           []string

	Application      string
	Zookeepers       string
	ZookeeperTimeout time.Duration
	Table            string
	Instance         string
	TableStore       string
	TableStoreDir    string
	DFSRoot          string

	LogLevel        string
	MetricsTextfile string
	Timeout         time.Duration

	// FileProperties come from the [properties] table of the config file.
	FileProperties map[string]string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Timeout:  DefaultTimeout,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ZookeeperTimeout < 0 {
		return fmt.Errorf("zookeeper timeout must not be negative")
	}
	switch c.TableStore {
	case "", "badger", "memory":
	default:
		return fmt.Errorf("unknown table store %q", c.TableStore)
	}
	for _, kv := range c.Sets {
		if _, _, err := splitSet(kv); err != nil {
			return err
		}
	}
	return nil
}

// BuildConfiguration assembles the application properties. Later sources
// win: [properties] from the config file, the properties file, --set
// entries, then typed settings that are non-empty. A badger table store
// without a directory is placed under DefaultTableStoreDir so tables outlive
// the process.
func (c *Config) BuildConfiguration() (*appconfig.Configuration, error) {
	var fromFile *appconfig.Configuration
	if c.PropertiesFile != "" {
		var err error
		if fromFile, err = appconfig.LoadFile(c.PropertiesFile); err != nil {
			return nil, fmt.Errorf("load properties: %w", err)
		}
	}
	return c.Overlay(fromFile)
}

// Overlay is BuildConfiguration with the properties file already loaded.
// A nil fileProps skips that layer.
func (c *Config) Overlay(fileProps *appconfig.Configuration) (*appconfig.Configuration, error) {
	props := appconfig.FromMap(c.FileProperties)
	props.Merge(fileProps)

	for _, kv := range c.Sets {
		k, v, err := splitSet(kv)
		if err != nil {
			return nil, err
		}
		props.Set(k, v)
	}

	for _, p := range []struct {
		key   string
		value string
	}{
		{appconfig.KeyApplicationName, c.Application},
		{appconfig.KeyZookeepers, c.Zookeepers},
		{appconfig.KeyTableName, c.Table},
		{appconfig.KeyTableInstance, c.Instance},
		{appconfig.KeyTableStore, c.TableStore},
		{appconfig.KeyTableStoreDir, c.TableStoreDir},
		{appconfig.KeyDFSRoot, c.DFSRoot},
	} {
		if p.value != "" {
			props.Set(p.key, p.value)
		}
	}
	if c.ZookeeperTimeout > 0 {
		props.Set(appconfig.KeyZookeeperTimeout, c.ZookeeperTimeout.String())
	}
	if props.TableStore() == appconfig.DefaultTableStore && props.TableStoreDir() == "" {
		if dir := DefaultTableStoreDir(); dir != "" {
			props.Set(appconfig.KeyTableStoreDir, dir)
		}
	}
	return props, nil
}

func splitSet(kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", fmt.Errorf("invalid --set %q, want key=value", kv)
	}
	return k, strings.TrimSpace(v), nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setList appends comma separated entries if the flag was not changed.
func (s *configSetter) setList(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*dst = append(*dst, v)
		}
	}
}
