package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "APPKEEPER_"

// ApplyEnvConfig applies APPKEEPER_* environment variables. They override
// the config file but not flags that were explicitly set.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("properties", env("PROPERTIES"), &cfg.PropertiesFile)
	s.setString("app", env("APPLICATION"), &cfg.Application)
	s.setString("zookeepers", env("ZOOKEEPERS"), &cfg.Zookeepers)
	s.setString("table", env("TABLE"), &cfg.Table)
	s.setString("instance", env("INSTANCE"), &cfg.Instance)
	s.setString("table-store", env("TABLE_STORE"), &cfg.TableStore)
	s.setString("table-store-dir", env("TABLE_STORE_DIR"), &cfg.TableStoreDir)
	s.setString("dfs-root", env("DFS_ROOT"), &cfg.DFSRoot)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("metrics-textfile", env("METRICS_TEXTFILE"), &cfg.MetricsTextfile)
	s.setList("set", env("SET"), &cfg.Sets)

	if err := s.setDuration("zookeeper-timeout", env("ZOOKEEPER_TIMEOUT"), &cfg.ZookeeperTimeout); err != nil {
		return err
	}
	return s.setDuration("timeout", env("TIMEOUT"), &cfg.Timeout)
}
