package app

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/appkeeper/internal/adapters/memory"
	"github.com/bft-labs/appkeeper/internal/appconfig"
	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
)

const (
	testApp       = "test"
	testTable     = "test_table"
	testAppRoot   = "/fluo/test"
	testInstance  = "instance"
	testInstID    = "instance-id"
	testConnect   = "localhost:2181/fluo"
	oracleNode    = testAppRoot + "/oracle/server/oracle-0000000001"
	workerNode    = testAppRoot + "/finders/f-worker-0000000001"
	sharedNode    = testAppRoot + "/config/shared"
	appIDNode     = testAppRoot + "/config/app-id"
	testExtraKey  = "app.observer.count"
	testExtraVal  = "3"
	testOtherConn = "connection.retry.count"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}
func (m mockLogger) With(fields ...ports.Field) ports.Logger {
	return m
}

// mockObserver records completed operations.
type mockObserver struct {
	mu   sync.Mutex
	ops  []Operation
	errs []error
}

func (m *mockObserver) OnOperation(op Operation, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	m.errs = append(m.errs, err)
}

func testConfig() *appconfig.Configuration {
	return appconfig.FromMap(map[string]string{
		appconfig.KeyApplicationName: testApp,
		appconfig.KeyZookeepers:      testConnect,
		appconfig.KeyTableName:       testTable,
		appconfig.KeyTableInstance:   testInstance,
		testOtherConn:                "5",
		testExtraKey:                 testExtraVal,
	})
}

type fixture struct {
	tree     *memory.Tree
	tables   *memory.TableStore
	observer *mockObserver
}

func newFixture() *fixture {
	return &fixture{
		tree:     memory.NewTree(),
		tables:   memory.NewTableStore(testInstance, testInstID),
		observer: &mockObserver{},
	}
}

func (f *fixture) deps() Dependencies {
	return Dependencies{
		Dialer:   f.tree,
		Tables:   f.tables,
		Logger:   mockLogger{},
		Observer: f.observer,
	}
}

func (f *fixture) open(t *testing.T, cfg *appconfig.Configuration) *Coordinator {
	t.Helper()
	c, err := New(context.Background(), cfg, f.deps())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func mustInitialize(t *testing.T, c *Coordinator, opts InitOptions) {
	t.Helper()
	if err := c.Initialize(context.Background(), opts); err != nil {
		t.Fatalf("Initialize(%+v) error = %v", opts, err)
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(context.Background(), nil, newFixture().deps()); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("New(nil cfg) error = %v, want ErrConfiguration", err)
	}
	if _, err := New(context.Background(), testConfig(), Dependencies{}); err == nil {
		t.Error("New() without dialer should fail")
	}
}

func TestInitialize_Fresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := f.open(t, testConfig())

	mustInitialize(t, c, InitOptions{})

	initialized, err := c.IsInitialized(ctx)
	if err != nil || !initialized {
		t.Fatalf("IsInitialized() = %v, %v, want true", initialized, err)
	}
	running, err := c.ApplicationRunning(ctx)
	if err != nil || running {
		t.Fatalf("ApplicationRunning() = %v, %v, want false", running, err)
	}

	nodes := f.tree.Snapshot(testAppRoot)
	want := map[string]string{
		testAppRoot + "/config/table-name":           testTable,
		testAppRoot + "/config/instance-name":        testInstance,
		testAppRoot + "/config/instance-id":          testInstID,
		testAppRoot + "/oracle/server/max-timestamp": "2",
		testAppRoot + "/oracle/server/gc-timestamp":  "0",
		testAppRoot + "/oracle/server":               "",
		testAppRoot + "/config":                      "",
	}
	for p, v := range want {
		got, ok := nodes[p]
		if !ok {
			t.Errorf("node %s missing", p)
			continue
		}
		if got != v {
			t.Errorf("node %s = %q, want %q", p, got, v)
		}
	}
	if nodes[appIDNode] == "" {
		t.Error("app-id is empty")
	}
	if _, ok := nodes[sharedNode]; !ok {
		t.Error("shared configuration missing")
	}

	tableCfg, ok := f.tables.Table(testTable)
	if !ok {
		t.Fatal("table was not created")
	}
	if !reflect.DeepEqual(tableCfg, domain.NewTableConfig("localhost:2181/fluo/test", "")) {
		t.Errorf("table config = %+v", tableCfg)
	}

	f.observer.mu.Lock()
	defer f.observer.mu.Unlock()
	if len(f.observer.ops) != 1 || f.observer.ops[0] != OpInitialize || f.observer.errs[0] != nil {
		t.Errorf("observed = %v %v", f.observer.ops, f.observer.errs)
	}
}

func TestInitialize_SecondCallLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := f.open(t, testConfig())
	mustInitialize(t, c, InitOptions{})

	nodesBefore := f.tree.Snapshot("/")
	tableBefore, _ := f.tables.Table(testTable)

	err := c.Initialize(ctx, InitOptions{})
	if !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Fatalf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}
	if !reflect.DeepEqual(nodesBefore, f.tree.Snapshot("/")) {
		t.Error("coordination namespace changed")
	}
	tableAfter, _ := f.tables.Table(testTable)
	if !reflect.DeepEqual(tableBefore, tableAfter) {
		t.Error("table changed")
	}
}

func TestInitialize_ClearResetsIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := f.open(t, testConfig())
	mustInitialize(t, c, InitOptions{})

	first, err := c.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}

	mustInitialize(t, c, InitOptions{ClearCoordination: true, ClearTable: true})

	second, err := c.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if first.ApplicationID == second.ApplicationID {
		t.Errorf("application id was not regenerated: %s", first.ApplicationID)
	}
	if second.InstanceName != testInstance || second.InstanceID != testInstID || second.TableName != testTable {
		t.Errorf("identity = %+v", second)
	}
}

func TestInitialize_ClearCoordinationOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := f.open(t, testConfig())
	mustInitialize(t, c, InitOptions{})

	err := c.Initialize(ctx, InitOptions{ClearCoordination: true})
	if !errors.Is(err, domain.ErrTableExists) {
		t.Fatalf("Initialize() error = %v, want ErrTableExists", err)
	}
	if errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Error("table error should not match ErrAlreadyInitialized")
	}
	if ok, _ := c.IsInitialized(ctx); !ok {
		t.Error("namespace was cleared despite precondition failure")
	}
}

func TestInitialize_ExistingTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	if err := f.tables.CreateTable(ctx, testTable, domain.TableConfig{}); err != nil {
		t.Fatal(err)
	}
	c := f.open(t, testConfig())

	if err := c.Initialize(ctx, InitOptions{}); !errors.Is(err, domain.ErrTableExists) {
		t.Fatalf("Initialize() error = %v, want ErrTableExists", err)
	}
	if nodes := f.tree.Snapshot(testAppRoot); len(nodes) != 0 {
		t.Errorf("namespace was written: %v", nodes)
	}

	mustInitialize(t, c, InitOptions{ClearTable: true})
	cfg, _ := f.tables.Table(testTable)
	if !cfg.ExcludeDefaultIterators {
		t.Error("table was not recreated")
	}
}

func TestInitialize_RunningApplication(t *testing.T) {
	tests := []struct {
		name     string
		register string
	}{
		{"oracle", oracleNode},
		{"worker", workerNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			c := f.open(t, testConfig())
			f.tree.Register(tt.register)

			err := c.Initialize(context.Background(), InitOptions{ClearCoordination: true, ClearTable: true})
			if !errors.Is(err, domain.ErrAlreadyInitialized) || !errors.Is(err, domain.ErrApplicationRunning) {
				t.Fatalf("Initialize() error = %v, want ErrAlreadyInitialized and ErrApplicationRunning", err)
			}
			if _, ok := f.tables.Table(testTable); ok {
				t.Error("table created while running")
			}
		})
	}
}

func TestLiveness(t *testing.T) {
	tests := []struct {
		name       string
		init       bool
		register   []string
		wantOracle bool
		wantCount  int
	}{
		{name: "no namespace"},
		{name: "initialized only", init: true},
		{name: "oracle", init: true, register: []string{oracleNode}, wantOracle: true},
		{name: "workers", init: true, register: []string{workerNode, testAppRoot + "/finders/f-worker-0000000002"}, wantCount: 2},
		{name: "non worker child", init: true, register: []string{testAppRoot + "/finders/lock"}},
		{name: "oracle and worker", init: true, register: []string{oracleNode, workerNode}, wantOracle: true, wantCount: 1},
		{name: "registrations without init", register: []string{workerNode}, wantCount: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			c := f.open(t, testConfig())
			if tt.init {
				mustInitialize(t, c, InitOptions{})
			}
			for _, p := range tt.register {
				f.tree.Register(p)
			}

			oracle, err := c.OracleExists(ctx)
			if err != nil {
				t.Fatal(err)
			}
			workers, err := c.NumWorkers(ctx)
			if err != nil {
				t.Fatal(err)
			}
			running, err := c.ApplicationRunning(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if oracle != tt.wantOracle || workers != tt.wantCount {
				t.Errorf("oracle=%v workers=%d, want %v %d", oracle, workers, tt.wantOracle, tt.wantCount)
			}
			if running != (oracle || workers > 0) {
				t.Errorf("ApplicationRunning() = %v, oracle=%v workers=%d", running, oracle, workers)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := f.open(t, testConfig())

	if err := c.Remove(ctx); err != nil {
		t.Fatalf("Remove() on absent application error = %v", err)
	}

	mustInitialize(t, c, InitOptions{})
	if err := c.Remove(ctx); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := c.Remove(ctx); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	if nodes := f.tree.Snapshot(testAppRoot); len(nodes) != 0 {
		t.Errorf("namespace left behind: %v", nodes)
	}
	if ok, _ := c.TableExists(ctx); ok {
		t.Error("table left behind")
	}

	mustInitialize(t, c, InitOptions{})
}

func TestRemove_Running(t *testing.T) {
	tests := []struct {
		name     string
		register string
	}{
		{"oracle", oracleNode},
		{"worker", workerNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			c := f.open(t, testConfig())
			mustInitialize(t, c, InitOptions{})
			f.tree.Register(tt.register)

			if err := c.Remove(ctx); !errors.Is(err, domain.ErrApplicationRunning) {
				t.Fatalf("Remove() error = %v, want ErrApplicationRunning", err)
			}
			if ok, _ := c.IsInitialized(ctx); !ok {
				t.Error("namespace removed while running")
			}
			if ok, _ := c.TableExists(ctx); !ok {
				t.Error("table dropped while running")
			}
		})
	}
}

func TestUpdateSharedConfig(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	mustInitialize(t, f.open(t, testConfig()), InitOptions{})

	updated := testConfig()
	updated.Set(testExtraKey, "7")
	updated.Set("app.new.key", "x")
	c := f.open(t, updated)
	appIDBefore := f.tree.Snapshot(appIDNode)

	if err := c.UpdateSharedConfig(ctx); err != nil {
		t.Fatalf("UpdateSharedConfig() error = %v", err)
	}
	shared, err := c.ApplicationConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if shared.Get(testExtraKey) != "7" || shared.Get("app.new.key") != "x" {
		t.Errorf("shared = %v", shared.ToMap())
	}
	if !reflect.DeepEqual(appIDBefore, f.tree.Snapshot(appIDNode)) {
		t.Error("app-id changed")
	}
}

func TestUpdateSharedConfig_Running(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	mustInitialize(t, f.open(t, testConfig()), InitOptions{})
	f.tree.Register(workerNode)

	updated := testConfig()
	updated.Set(testExtraKey, "9")
	c := f.open(t, updated)
	before := f.tree.Snapshot(sharedNode)

	if err := c.UpdateSharedConfig(ctx); !errors.Is(err, domain.ErrApplicationRunning) {
		t.Fatalf("UpdateSharedConfig() error = %v, want ErrApplicationRunning", err)
	}
	if !reflect.DeepEqual(before, f.tree.Snapshot(sharedNode)) {
		t.Error("shared configuration changed while running")
	}
}

func TestUpdateSharedConfig_NotInitialized(t *testing.T) {
	f := newFixture()
	c := f.open(t, testConfig())

	err := c.UpdateSharedConfig(context.Background())
	if !errors.Is(err, domain.ErrNotInitialized) || !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("UpdateSharedConfig() error = %v, want ErrNotInitialized", err)
	}
	if nodes := f.tree.Snapshot(testAppRoot); len(nodes) != 0 {
		t.Errorf("nodes written: %v", nodes)
	}
}

func TestChrootValidation(t *testing.T) {
	for _, connect := range []string{"localhost:2181", "localhost:2181/", "localhost:2181//"} {
		t.Run(connect, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			boom := errors.New("store touched")
			for _, op := range []string{memory.OpExists, memory.OpCreate, memory.OpDelete, memory.OpGet, memory.OpChildren} {
				f.tree.FailOn(op, "", boom)
			}
			for _, op := range []string{memory.OpInstance, memory.OpTableExists, memory.OpDropTable, memory.OpCreateTable} {
				f.tables.FailOn(op, "", boom)
			}
			cfg := testConfig()
			cfg.Set(appconfig.KeyZookeepers, connect)
			c := f.open(t, cfg)

			if err := c.Initialize(ctx, InitOptions{}); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Initialize() error = %v, want ErrConfiguration", err)
			}
			if err := c.Remove(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Remove() error = %v, want ErrConfiguration", err)
			}
			if f.tree.DialCount() != 1 {
				t.Errorf("dials = %d, want only the instance session", f.tree.DialCount())
			}
		})
	}
}

func TestApplicationNameValidation(t *testing.T) {
	tests := []struct {
		name    string
		appName string
	}{
		{"parent", ".."},
		{"current", "."},
		{"sibling through parent", "other/../" + testApp},
		{"nested", "a/b"},
		{"leading slash", "/" + testApp},
		{"backslash", `a\b`},
		{"colon", "x:y"},
		{"nul", "x\x00y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			mustInitialize(t, f.open(t, testConfig()), InitOptions{})
			before := f.tree.Snapshot("/")

			cfg := testConfig()
			cfg.Set(appconfig.KeyApplicationName, tt.appName)
			c := f.open(t, cfg)

			if _, err := c.IsInitialized(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("IsInitialized() error = %v, want ErrConfiguration", err)
			}
			if _, err := c.NumWorkers(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("NumWorkers() error = %v, want ErrConfiguration", err)
			}
			if _, err := c.ApplicationConfig(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("ApplicationConfig() error = %v, want ErrConfiguration", err)
			}
			if err := c.Remove(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Remove() error = %v, want ErrConfiguration", err)
			}
			if err := c.Initialize(ctx, InitOptions{ClearCoordination: true, ClearTable: true}); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Initialize() error = %v, want ErrConfiguration", err)
			}
			if err := c.UpdateSharedConfig(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("UpdateSharedConfig() error = %v, want ErrConfiguration", err)
			}

			if after := f.tree.Snapshot("/"); !reflect.DeepEqual(before, after) {
				t.Errorf("tree changed:\nbefore %v\nafter  %v", before, after)
			}
			if _, ok := f.tables.Table(testTable); !ok {
				t.Error("table of the existing application was dropped")
			}
		})
	}
}

func TestMissingAdminProps(t *testing.T) {
	for _, key := range []string{appconfig.KeyApplicationName, appconfig.KeyTableName, appconfig.KeyTableInstance} {
		t.Run(key, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			cfg := testConfig()
			cfg.Delete(key)
			c := f.open(t, cfg)

			if err := c.Initialize(ctx, InitOptions{}); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Initialize() error = %v", err)
			}
			if err := c.Remove(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Remove() error = %v", err)
			}
			if err := c.UpdateSharedConfig(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("UpdateSharedConfig() error = %v", err)
			}
			if _, err := c.TableExists(ctx); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("TableExists() error = %v", err)
			}
		})
	}
}

func TestApplicationConfig_NotInitialized(t *testing.T) {
	c := newFixture().open(t, testConfig())
	_, err := c.ApplicationConfig(context.Background())
	if !errors.Is(err, domain.ErrNotInitialized) || !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("ApplicationConfig() error = %v, want ErrNotInitialized", err)
	}
	if _, err := c.Identity(context.Background()); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Identity() error = %v", err)
	}
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := f.open(t, testConfig())
	if got := c.ConnectionConfig().AppZookeepers(); domain.ParseRoot(got) != testAppRoot {
		t.Fatalf("app chroot = %s, want %s", domain.ParseRoot(got), testAppRoot)
	}

	mustInitialize(t, c, InitOptions{})

	if ok, err := c.IsInitialized(ctx); err != nil || !ok {
		t.Fatalf("IsInitialized() = %v, %v", ok, err)
	}
	if ok, err := c.TableExists(ctx); err != nil || !ok {
		t.Fatalf("TableExists() = %v, %v", ok, err)
	}
	shared, err := c.ApplicationConfig(ctx)
	if err != nil {
		t.Fatalf("ApplicationConfig() error = %v", err)
	}
	want := map[string]string{
		appconfig.KeyTableName:     testTable,
		appconfig.KeyTableInstance: testInstance,
		testExtraKey:               testExtraVal,
	}
	if !reflect.DeepEqual(shared.ToMap(), want) {
		t.Errorf("ApplicationConfig() = %v, want %v", shared.ToMap(), want)
	}

	merged, err := c.MergedConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Get(testOtherConn) != "5" || merged.Get(testExtraKey) != testExtraVal {
		t.Errorf("MergedConfig() = %v", merged.ToMap())
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := f.open(t, testConfig())

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Initialized || st.Running || st.TableExists || st.Identity != nil {
		t.Errorf("Status() before init = %+v", st)
	}

	mustInitialize(t, c, InitOptions{})
	f.tree.Register(workerNode)

	st, err = c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Initialized || !st.Running || st.OracleRunning || st.Workers != 1 || !st.TableExists {
		t.Errorf("Status() = %+v", st)
	}
	if st.Identity == nil || st.Identity.ApplicationName != testApp {
		t.Errorf("Status().Identity = %+v", st.Identity)
	}
	if st.Watermarks == nil || st.Watermarks.MaxTimestamp != 2 || st.Watermarks.GCTimestamp != 0 {
		t.Errorf("Status().Watermarks = %+v", st.Watermarks)
	}
}

func TestInitialize_ConcurrentInitializers(t *testing.T) {
	const racers = 8
	f := newFixture()
	coords := make([]*Coordinator, racers)
	for i := range coords {
		coords[i] = f.open(t, testConfig())
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	start := make(chan struct{})
	for i, c := range coords {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = c.Initialize(context.Background(), InitOptions{})
		}()
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrAlreadyInitialized), errors.Is(err, domain.ErrTableExists):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want 1 (errors %v)", winners, errs)
	}
	if _, err := coords[0].Identity(context.Background()); err != nil {
		t.Errorf("Identity() after race error = %v", err)
	}
}
