package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseRoot(t *testing.T) {
	tests := []struct {
		connect string
		want    string
	}{
		{"localhost", "/"},
		{"localhost/", "/"},
		{"localhost:2181/fluo", "/fluo"},
		{"zk1:2181,zk2:2181/apps/x", "/apps/x"},
		{"zk1/apps/x/", "/apps/x"},
		{"zk1//", "/"},
	}

	for _, tt := range tests {
		if got := ParseRoot(tt.connect); got != tt.want {
			t.Errorf("ParseRoot(%q) = %q, want %q", tt.connect, got, tt.want)
		}
	}
}

func TestParseServers(t *testing.T) {
	if got := ParseServers("zk1:2181,zk2:2181/apps"); got != "zk1:2181,zk2:2181" {
		t.Errorf("ParseServers = %q", got)
	}
	if got := ParseServers("zk1"); got != "zk1" {
		t.Errorf("ParseServers = %q", got)
	}

	got := SplitServers(" zk1:2181, ,zk2:2181 ")
	if len(got) != 2 || got[0] != "zk1:2181" || got[1] != "zk2:2181" {
		t.Errorf("SplitServers = %v", got)
	}
}

func TestAppConnect(t *testing.T) {
	if got := AppConnect("localhost/fluo", "test"); got != "localhost/fluo/test" {
		t.Errorf("AppConnect = %q", got)
	}
	if got := AppConnect("localhost/fluo/", "test"); got != "localhost/fluo/test" {
		t.Errorf("AppConnect trailing slash = %q", got)
	}
	if got := ParseRoot(AppConnect("localhost/fluo", "test")); got != "/fluo/test" {
		t.Errorf("app root = %q", got)
	}
}

func TestIsOracleRegistration(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"max-timestamp", false},
		{"gc-timestamp", false},
		{"leader-0000000001", true},
	}
	for _, tt := range tests {
		if got := IsOracleRegistration(tt.name); got != tt.want {
			t.Errorf("IsOracleRegistration(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNamespaceNodesOrder(t *testing.T) {
	id := Identity{ApplicationID: "id", InstanceName: "inst", InstanceID: "iid"}
	nodes := NamespaceNodes(id, "tbl")

	want := []string{
		ConfigPath, ConfigTableName, ConfigInstanceName, ConfigInstanceID,
		ConfigApplicationID, OracleServer, OracleMaxTimestamp, OracleGCTimestamp,
	}
	if len(nodes) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(nodes), len(want))
	}
	for i, n := range nodes {
		if n.Path != want[i] {
			t.Errorf("node %d = %s, want %s", i, n.Path, want[i])
		}
	}
	if string(nodes[6].Data) != "2" || string(nodes[7].Data) != "0" {
		t.Errorf("watermark sentinels = %q, %q", nodes[6].Data, nodes[7].Data)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("read shared config: %w", ErrNotInitialized)
	if !errors.Is(err, ErrConfiguration) {
		t.Error("ErrNotInitialized should match ErrConfiguration")
	}
	if !errors.Is(err, ErrNotInitialized) {
		t.Error("ErrNotInitialized should match itself")
	}
	if errors.Is(ErrStaging, ErrConfiguration) {
		t.Error("ErrStaging should not match ErrConfiguration")
	}
	if !errors.Is(fmt.Errorf("x: %w", ErrStaging), ErrStorage) {
		t.Error("ErrStaging should match ErrStorage")
	}
}

func TestNewTableConfig(t *testing.T) {
	cfg := NewTableConfig("zk/fluo/app", "")
	if _, ok := cfg.Properties[PropClasspathContext]; ok {
		t.Error("classpath context set without staged jars")
	}
	if cfg.Properties[PropBlockCacheEnabled] != "true" {
		t.Error("block cache not enabled")
	}
	if got := cfg.LocalityGroups[NotifyLocalityGroup]; len(got) != 1 || got[0] != NotifyColumnFamily {
		t.Errorf("locality groups = %v", cfg.LocalityGroups)
	}
	its := cfg.SortedIterators()
	if len(its) != 2 || its[0].Name != GCColumnFamily || its[1].Name != NotifyColumnFamily {
		t.Fatalf("iterators = %+v", its)
	}
	if its[0].Options[GCZookeepersOption] != "zk/fluo/app" {
		t.Errorf("gc iterator options = %v", its[0].Options)
	}

	cfg = NewTableConfig("zk/fluo/app", ClasspathContext("app"))
	if cfg.Properties[PropClasspathContext] != "appkeeper-app" {
		t.Errorf("classpath context = %q", cfg.Properties[PropClasspathContext])
	}
}

func TestValidApplicationName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"billing", false},
		{"billing-2.v1_x", false},
		{"", true},
		{".", true},
		{"..", true},
		{"a/b", true},
		{"../victim", true},
		{`a\b`, true},
		{"a:b", true},
		{"a\x00b", true},
	}
	for _, tt := range tests {
		if err := ValidApplicationName(tt.name); (err != nil) != tt.wantErr {
			t.Errorf("ValidApplicationName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
