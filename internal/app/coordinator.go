// Package app implements the application lifecycle coordinator: the
// administrative entry point that bootstraps, removes and resynchronizes the
// control-plane state an application keeps in the coordination tree and the
// table store.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/appkeeper/internal/appconfig"
	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
	"github.com/bft-labs/appkeeper/pkg/log"
)

// Dependencies are the external collaborators of a Coordinator. The
// coordinator owns the table store and closes it on Close.
type Dependencies struct {
	Dialer ports.CoordinationDialer
	Tables ports.TableStore
	// Stagers builds the artifact stager on demand. Optional unless jars or
	// observer code must be staged.
	Stagers  ports.StagerFactory
	Logger   ports.Logger
	Observer OperationObserver
}

// Coordinator performs administrative operations for one application.
// Methods are safe for concurrent use.
type Coordinator struct {
	cfg      *appconfig.Configuration
	dialer   ports.CoordinationDialer
	tables   ports.TableStore
	stagers  ports.StagerFactory
	logger   ports.Logger
	observer OperationObserver

	// root is connected to the instance chroot.
	root ports.CoordinationClient

	mu     sync.Mutex
	refs   int
	closed bool
	// observerURL is the observer code location staged by initialize. It
	// overrides the configured value in later shared snapshots.
	observerURL string

	// appMu guards lazy creation of the application-scoped session.
	appMu sync.Mutex
	app   ports.CoordinationClient
}

// New creates a coordinator and connects the instance-level session.
// The configuration is copied.
func New(ctx context.Context, cfg *appconfig.Configuration, deps Dependencies) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is nil", domain.ErrConfiguration)
	}
	if deps.Dialer == nil || deps.Tables == nil {
		return nil, errors.New("app: dialer and table store are required")
	}
	if deps.Logger == nil {
		deps.Logger = &log.NoopLogger{}
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}

	cfg = cfg.Clone()
	connect := cfg.InstanceZookeepers()
	root, err := deps.Dialer.Dial(ctx, domain.ParseServers(connect), domain.ParseRoot(connect))
	if err != nil {
		return nil, coordinationError("connect "+connect, err)
	}

	return &Coordinator{
		cfg:      cfg,
		dialer:   deps.Dialer,
		tables:   deps.Tables,
		stagers:  deps.Stagers,
		logger:   deps.Logger.With(ports.Component("coordinator"), ports.String("app", cfg.ApplicationName())),
		observer: deps.Observer,
		root:     root,
		refs:     1,
	}, nil
}

// acquire registers an in-flight operation.
func (c *Coordinator) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	c.refs++
	return nil
}

// release ends an in-flight operation, shutting down if it was the last
// reference after Close.
func (c *Coordinator) release() {
	c.mu.Lock()
	c.refs--
	last := c.refs == 0
	c.mu.Unlock()
	if last {
		c.shutdown()
	}
}

// Close releases the coordination sessions and the table store once all
// in-flight operations have returned. It is idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.refs--
	last := c.refs == 0
	c.mu.Unlock()
	if last {
		return c.shutdown()
	}
	return nil
}

func (c *Coordinator) shutdown() error {
	c.appMu.Lock()
	app := c.app
	c.app = nil
	c.appMu.Unlock()

	var errs []error
	if app != nil {
		errs = append(errs, app.Close())
	}
	errs = append(errs, c.root.Close(), c.tables.Close())
	if err := errors.Join(errs...); err != nil {
		c.logger.Warn("close failed", ports.Err(err))
		return err
	}
	c.logger.Debug("coordinator closed")
	return nil
}

// appSession returns the application-scoped session, dialing it on first use.
// Concurrent first callers share one dial.
func (c *Coordinator) appSession(ctx context.Context) (ports.CoordinationClient, error) {
	c.appMu.Lock()
	defer c.appMu.Unlock()
	if c.app != nil {
		return c.app, nil
	}
	if err := c.checkApplicationName(); err != nil {
		return nil, err
	}
	connect := c.cfg.AppZookeepers()
	app, err := c.dialer.Dial(ctx, domain.ParseServers(connect), domain.ParseRoot(connect))
	if err != nil {
		return nil, coordinationError("connect "+connect, err)
	}
	c.app = app
	return app, nil
}

// localConfig returns a copy of the configuration including values produced
// by staging.
func (c *Coordinator) localConfig() *appconfig.Configuration {
	cfg := c.cfg.Clone()
	c.mu.Lock()
	u := c.observerURL
	c.mu.Unlock()
	if u != "" {
		cfg.Set(appconfig.KeyObserverJarsURL, u)
	}
	return cfg
}

func (c *Coordinator) setObserverURL(u string) {
	c.mu.Lock()
	c.observerURL = u
	c.mu.Unlock()
}

// appRoot is the application chroot relative to the instance chroot.
func (c *Coordinator) appRoot() string {
	return "/" + c.cfg.ApplicationName()
}

// run executes a mutating operation and reports it to the observer.
func (c *Coordinator) run(ctx context.Context, op Operation, fn func(ctx context.Context) error) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	start := time.Now()
	err := fn(ctx)
	c.observer.OnOperation(op, time.Since(start), err)
	if err != nil {
		c.logger.Error("operation failed", ports.String("op", string(op)), ports.Err(err))
	}
	return err
}

// checkAdminConfig verifies the settings every administrative operation
// needs. It never touches a store.
func (c *Coordinator) checkAdminConfig() error {
	if missing := c.cfg.MissingAdminProps(); len(missing) > 0 {
		return fmt.Errorf("%w: missing required properties %v", domain.ErrConfiguration, missing)
	}
	if err := c.checkApplicationName(); err != nil {
		return err
	}
	if chroot := domain.ParseRoot(c.cfg.InstanceZookeepers()); domain.IsRoot(chroot) {
		return fmt.Errorf("%w: connection string %q (set by %s) must have a chroot suffix",
			domain.ErrConfiguration, c.cfg.InstanceZookeepers(), appconfig.KeyZookeepers)
	}
	return nil
}

// checkApplicationName rejects names that would resolve outside the
// application's own chroot or staging directory.
func (c *Coordinator) checkApplicationName() error {
	if err := domain.ValidApplicationName(c.cfg.ApplicationName()); err != nil {
		return fmt.Errorf("%w: %s %q: %w", domain.ErrConfiguration,
			appconfig.KeyApplicationName, c.cfg.ApplicationName(), err)
	}
	return nil
}

func coordinationError(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrCoordination, action, err)
}

func storageError(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, action, err)
}
