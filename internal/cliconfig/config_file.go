package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	PropertiesFile   string            `toml:"properties_file"`
	Application      string            `toml:"application"`
	Zookeepers       string            `toml:"zookeepers"`
	ZookeeperTimeout string            `toml:"zookeeper_timeout"`
	Table            string            `toml:"table"`
	Instance         string            `toml:"instance"`
	TableStore       string            `toml:"table_store"`
	TableStoreDir    string            `toml:"table_store_dir"`
	DFSRoot          string            `toml:"dfs_root"`
	LogLevel         string            `toml:"log_level"`
	MetricsTextfile  string            `toml:"metrics_textfile"`
	Timeout          string            `toml:"timeout"`
	Properties       map[string]string `toml:"properties"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.appkeeper/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".appkeeper", "config.toml")
	}
	return ""
}

// DefaultTableStoreDir returns the directory of the CLI's badger table
// store, ~/.appkeeper/tables, or "" when the home directory is unknown.
func DefaultTableStoreDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".appkeeper", "tables")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("properties", fc.PropertiesFile, &cfg.PropertiesFile)
	s.setString("app", fc.Application, &cfg.Application)
	s.setString("zookeepers", fc.Zookeepers, &cfg.Zookeepers)
	s.setString("table", fc.Table, &cfg.Table)
	s.setString("instance", fc.Instance, &cfg.Instance)
	s.setString("table-store", fc.TableStore, &cfg.TableStore)
	s.setString("table-store-dir", fc.TableStoreDir, &cfg.TableStoreDir)
	s.setString("dfs-root", fc.DFSRoot, &cfg.DFSRoot)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("metrics-textfile", fc.MetricsTextfile, &cfg.MetricsTextfile)

	if err := s.setDuration("zookeeper-timeout", fc.ZookeeperTimeout, &cfg.ZookeeperTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}

	if len(fc.Properties) > 0 {
		if cfg.FileProperties == nil {
			cfg.FileProperties = make(map[string]string, len(fc.Properties))
		}
		for k, v := range fc.Properties {
			cfg.FileProperties[k] = v
		}
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
