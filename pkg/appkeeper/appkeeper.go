package appkeeper

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	badgerstore "github.com/bft-labs/appkeeper/internal/adapters/badger"
	"github.com/bft-labs/appkeeper/internal/adapters/dfs"
	"github.com/bft-labs/appkeeper/internal/adapters/memory"
	"github.com/bft-labs/appkeeper/internal/adapters/zookeeper"
	"github.com/bft-labs/appkeeper/internal/app"
	"github.com/bft-labs/appkeeper/internal/appconfig"
	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
)

type (
	// Coordinator performs administrative operations for one application.
	Coordinator = app.Coordinator
	// Configuration is an ordered set of application properties.
	Configuration = appconfig.Configuration
	// InitOptions controls what Initialize may clear.
	InitOptions = app.InitOptions
	// Status is a point-in-time view of an application.
	Status = app.Status
	// Identity identifies an initialized application.
	Identity = domain.Identity
	// Operation names a mutating coordinator operation.
	Operation = app.Operation
	// OperationObserver is notified after each mutating operation.
	OperationObserver = app.OperationObserver
)

// Error kinds; match them with errors.Is.
var (
	ErrConfiguration      = domain.ErrConfiguration
	ErrAlreadyInitialized = domain.ErrAlreadyInitialized
	ErrTableExists        = domain.ErrTableExists
	ErrApplicationRunning = domain.ErrApplicationRunning
	ErrNotInitialized     = domain.ErrNotInitialized
	ErrCoordination       = domain.ErrCoordination
	ErrStorage            = domain.ErrStorage
	ErrStaging            = domain.ErrStaging
	ErrClosed             = domain.ErrClosed
)

// NewConfiguration builds a configuration from a property map.
func NewConfiguration(props map[string]string) *Configuration {
	return appconfig.FromMap(props)
}

// LoadProperties reads a Java properties file.
func LoadProperties(path string) (*Configuration, error) {
	return appconfig.LoadFile(path)
}

// Open creates a Coordinator for the application described by cfg. The
// required administrative properties must be set; they are checked before
// any store is opened.
func Open(ctx context.Context, cfg *Configuration, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is nil", domain.ErrConfiguration)
	}
	if missing := cfg.MissingAdminProps(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required properties %v", domain.ErrConfiguration, missing)
	}
	if err := domain.ValidApplicationName(cfg.ApplicationName()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, appconfig.KeyApplicationName, err)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.dialer == nil {
		timeout, err := cfg.ZookeeperTimeout()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, appconfig.KeyZookeeperTimeout, err)
		}
		o.dialer = zookeeper.NewDialer(timeout, o.logger)
	}
	if o.stagers == nil {
		o.stagers = dfs.NewStager
	}

	tables := o.tables
	if tables == nil {
		var err error
		if tables, err = openTableStore(cfg, o.logger); err != nil {
			return nil, err
		}
	}

	c, err := app.New(ctx, cfg, app.Dependencies{
		Dialer:   o.dialer,
		Tables:   tables,
		Stagers:  o.stagers,
		Logger:   o.logger,
		Observer: o.observer,
	})
	if err != nil {
		_ = tables.Close()
		return nil, err
	}
	return c, nil
}

func openTableStore(cfg *Configuration, logger ports.Logger) (ports.TableStore, error) {
	switch kind := cfg.TableStore(); kind {
	case "badger":
		dir := cfg.TableStoreDir()
		s, err := badgerstore.Open(badgerstore.Options{
			Dir:          dir,
			InMemory:     dir == "",
			InstanceName: cfg.TableInstance(),
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: open table store: %w", domain.ErrStorage, err)
		}
		return s, nil
	case "memory":
		return memory.NewTableStore(cfg.TableInstance(), uuid.NewString()), nil
	default:
		return nil, fmt.Errorf("%w: unknown %s %q", domain.ErrConfiguration, appconfig.KeyTableStore, kind)
	}
}
