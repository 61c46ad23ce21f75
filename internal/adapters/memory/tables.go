package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
)

// Operation names accepted by TableStore.FailOn.
const (
	OpInstance    = "instance"
	OpTableExists = "table-exists"
	OpDropTable   = "drop-table"
	OpCreateTable = "create-table"
	OpSetProperty = "set-property"
)

// TableStore is an in-memory ports.TableStore. It records the full table
// configuration so callers can inspect what was applied.
type TableStore struct {
	mu       sync.Mutex
	instance ports.InstanceInfo
	tables   map[string]domain.TableConfig
	props    map[string]string
	closed   bool

	faults faults
}

// NewTableStore returns an empty store reporting the given instance.
func NewTableStore(instanceName, instanceID string) *TableStore {
	return &TableStore{
		instance: ports.InstanceInfo{Name: instanceName, ID: instanceID},
		tables:   make(map[string]domain.TableConfig),
		props:    make(map[string]string),
	}
}

// FailOn makes the next op on target fail with err. An empty target
// matches any table or property key.
func (s *TableStore) FailOn(op, target string, err error) {
	s.faults.set(op, target, err)
}

// Table returns the configuration a table was created with.
func (s *TableStore) Table(name string) (domain.TableConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.tables[name]
	return cfg, ok
}

// InstanceProperty returns an instance-level property.
func (s *TableStore) InstanceProperty(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.props[key]
	return v, ok
}

// Closed reports whether Close was called.
func (s *TableStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Instance implements ports.TableStore.
func (s *TableStore) Instance(ctx context.Context) (ports.InstanceInfo, error) {
	if err := s.check(ctx, OpInstance, s.instance.Name); err != nil {
		return ports.InstanceInfo{}, err
	}
	return s.instance, nil
}

// TableExists implements ports.TableStore.
func (s *TableStore) TableExists(ctx context.Context, name string) (bool, error) {
	if err := s.check(ctx, OpTableExists, name); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[name]
	return ok, nil
}

// DropTable implements ports.TableStore.
func (s *TableStore) DropTable(ctx context.Context, name string) error {
	if err := s.check(ctx, OpDropTable, name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("%w: %s", ports.ErrTableNotFound, name)
	}
	delete(s.tables, name)
	return nil
}

// CreateTable implements ports.TableStore.
func (s *TableStore) CreateTable(ctx context.Context, name string, cfg domain.TableConfig) error {
	if err := s.check(ctx, OpCreateTable, name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return fmt.Errorf("%w: %s", ports.ErrTableExists, name)
	}
	s.tables[name] = cfg
	return nil
}

// SetInstanceProperty implements ports.TableStore.
func (s *TableStore) SetInstanceProperty(ctx context.Context, key, value string) error {
	if err := s.check(ctx, OpSetProperty, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[key] = value
	return nil
}

// Close implements ports.TableStore.
func (s *TableStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *TableStore) check(ctx context.Context, op, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.faults.take(op, target)
}
