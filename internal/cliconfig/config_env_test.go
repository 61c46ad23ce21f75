package cliconfig

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"APPKEEPER_APPLICATION":       "billing",
				"APPKEEPER_ZOOKEEPERS":        "zk1:2181,zk2:2181/apps",
				"APPKEEPER_ZOOKEEPER_TIMEOUT": "10s",
				"APPKEEPER_TABLE":             "billing_data",
				"APPKEEPER_INSTANCE":          "accumulo",
				"APPKEEPER_TABLE_STORE":       "memory",
				"APPKEEPER_DFS_ROOT":          "s3://bucket/apps",
				"APPKEEPER_LOG_LEVEL":         "debug",
				"APPKEEPER_TIMEOUT":           "5m",
				"APPKEEPER_SET":               "a=1, b=2",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Application:      "billing",
				Zookeepers:       "zk1:2181,zk2:2181/apps",
				ZookeeperTimeout: 10 * time.Second,
				Table:            "billing_data",
				Instance:         "accumulo",
				TableStore:       "memory",
				DFSRoot:          "s3://bucket/apps",
				LogLevel:         "debug",
				Timeout:          5 * time.Minute,
				Sets:             []string{"a=1", "b=2"},
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"APPKEEPER_APPLICATION": "from-env",
				"APPKEEPER_TABLE":       "env_table",
			},
			changed: map[string]bool{"app": true},
			initial: Config{Application: "from-flag"},
			expected: Config{
				Application: "from-flag",
				Table:       "env_table",
			},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"APPKEEPER_TIMEOUT": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid zookeeper timeout",
			envVars: map[string]string{
				"APPKEEPER_ZOOKEEPER_TIMEOUT": "soon",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:     "no env vars leaves config untouched",
			envVars:  map[string]string{},
			changed:  map[string]bool{},
			initial:  Config{Table: "kept"},
			expected: Config{Table: "kept"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}
			if tt.wantErr {
				return
			}

			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
