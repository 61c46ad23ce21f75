// Package badger implements the table-store port as an embedded catalog on
// Badger. Table definitions and instance properties are stored as keys in a
// single database; the instance id is generated on first open.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
	"github.com/bft-labs/appkeeper/pkg/log"
)

const (
	keyInstanceName = "meta/instance-name"
	keyInstanceID   = "meta/instance-id"
	tablePrefix     = "table/"
	propPrefix      = "prop/"
)

// Options configures Open.
type Options struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir string
	// InMemory keeps everything in memory; used by tests.
	InMemory bool
	// InstanceName is recorded on first open and must match afterwards.
	InstanceName string
	Logger       ports.Logger
}

// tableRecord is the stored form of a table definition.
type tableRecord struct {
	Name      string             `json:"name"`
	Config    domain.TableConfig `json:"config"`
	CreatedAt time.Time          `json:"created_at"`
}

// Store is a Badger-backed ports.TableStore.
type Store struct {
	db       *badger.DB
	instance ports.InstanceInfo
	logger   ports.Logger
}

// Open opens or creates the catalog.
func Open(opts Options) (*Store, error) {
	if opts.InstanceName == "" {
		return nil, errors.New("badger: instance name required")
	}
	if opts.Logger == nil {
		opts.Logger = &log.NoopLogger{}
	}
	logger := opts.Logger.With(log.Component("badger"))

	bopts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger})
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", opts.Dir, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.loadInstance(opts.InstanceName); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadInstance(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		stored, err := getString(txn, keyInstanceName)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			id := uuid.NewString()
			if err := txn.Set([]byte(keyInstanceName), []byte(name)); err != nil {
				return err
			}
			if err := txn.Set([]byte(keyInstanceID), []byte(id)); err != nil {
				return err
			}
			s.instance = ports.InstanceInfo{Name: name, ID: id}
			s.logger.Info("created table store instance", log.String("instance", name), log.String("instance_id", id))
			return nil
		case err != nil:
			return err
		case stored != name:
			return fmt.Errorf("badger: catalog belongs to instance %q, not %q", stored, name)
		}
		id, err := getString(txn, keyInstanceID)
		if err != nil {
			return fmt.Errorf("badger: read instance id: %w", err)
		}
		s.instance = ports.InstanceInfo{Name: stored, ID: id}
		return nil
	})
}

// Instance implements ports.TableStore.
func (s *Store) Instance(ctx context.Context) (ports.InstanceInfo, error) {
	if err := ctx.Err(); err != nil {
		return ports.InstanceInfo{}, err
	}
	return s.instance, nil
}

// TableExists implements ports.TableStore.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(tableKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

// DropTable implements ports.TableStore.
func (s *Store) DropTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tableKey(name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ports.ErrTableNotFound, name)
			}
			return err
		}
		return txn.Delete(tableKey(name))
	})
}

// CreateTable implements ports.TableStore.
func (s *Store) CreateTable(ctx context.Context, name string, cfg domain.TableConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(tableRecord{Name: name, Config: cfg, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(tableKey(name))
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", ports.ErrTableExists, name)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(tableKey(name), data)
	})
}

// TableConfig returns the stored definition of a table.
func (s *Store) TableConfig(ctx context.Context, name string) (domain.TableConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.TableConfig{}, err
	}
	var rec tableRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tableKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ports.ErrTableNotFound, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec.Config, err
}

// SetInstanceProperty implements ports.TableStore.
func (s *Store) SetInstanceProperty(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(propPrefix+key), []byte(value))
	})
}

// InstanceProperty returns an instance property and whether it is set.
func (s *Store) InstanceProperty(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		v, err := getString(txn, propPrefix+key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	return value, found, err
}

// Close implements ports.TableStore.
func (s *Store) Close() error {
	return s.db.Close()
}

func tableKey(name string) []byte { return []byte(tablePrefix + name) }

func getString(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return "", err
	}
	v, err := item.ValueCopy(nil)
	return string(v), err
}

// badgerLogger routes Badger's internal logging through ports.Logger.
// Info and debug chatter is demoted to debug.
type badgerLogger struct {
	logger ports.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
