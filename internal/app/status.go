package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bft-labs/appkeeper/internal/appconfig"
	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
)

// Status is a read-only snapshot of an application's control-plane state.
type Status struct {
	ApplicationName string
	Initialized     bool
	OracleRunning   bool
	Workers         int
	Running         bool
	TableExists     bool

	// Identity and Watermarks are set only when Initialized.
	Identity   *domain.Identity
	Watermarks *domain.Watermarks
}

// IsInitialized reports whether the application's coordination namespace
// exists.
func (c *Coordinator) IsInitialized(ctx context.Context) (bool, error) {
	if err := c.acquire(); err != nil {
		return false, err
	}
	defer c.release()
	return c.isInitialized(ctx)
}

func (c *Coordinator) isInitialized(ctx context.Context) (bool, error) {
	if err := c.checkApplicationName(); err != nil {
		return false, err
	}
	ok, err := c.root.Exists(ctx, c.appRoot())
	if err != nil {
		return false, coordinationError("check "+c.appRoot(), err)
	}
	return ok, nil
}

// OracleExists reports whether an oracle is registered.
func (c *Coordinator) OracleExists(ctx context.Context) (bool, error) {
	if err := c.acquire(); err != nil {
		return false, err
	}
	defer c.release()
	return c.oracleExists(ctx)
}

func (c *Coordinator) oracleExists(ctx context.Context) (bool, error) {
	names, err := c.children(ctx, domain.OracleServer)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if domain.IsOracleRegistration(name) {
			return true, nil
		}
	}
	return false, nil
}

// NumWorkers returns the number of registered workers.
func (c *Coordinator) NumWorkers(ctx context.Context) (int, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.release()
	return c.numWorkers(ctx)
}

func (c *Coordinator) numWorkers(ctx context.Context) (int, error) {
	names, err := c.children(ctx, domain.Finders)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, name := range names {
		if domain.IsFinder(name) {
			n++
		}
	}
	return n, nil
}

// children lists a node of the application namespace; an absent node has no
// children.
func (c *Coordinator) children(ctx context.Context, p string) ([]string, error) {
	app, err := c.appSession(ctx)
	if err != nil {
		return nil, err
	}
	names, err := app.Children(ctx, p)
	if errors.Is(err, ports.ErrNoNode) {
		return nil, nil
	}
	if err != nil {
		return nil, coordinationError("list "+p, err)
	}
	return names, nil
}

// ApplicationRunning reports whether an oracle or any worker is registered.
func (c *Coordinator) ApplicationRunning(ctx context.Context) (bool, error) {
	if err := c.acquire(); err != nil {
		return false, err
	}
	defer c.release()
	oracle, workers, err := c.liveness(ctx)
	return oracle || workers > 0, err
}

func (c *Coordinator) liveness(ctx context.Context) (oracle bool, workers int, err error) {
	if oracle, err = c.oracleExists(ctx); err != nil {
		return false, 0, err
	}
	if workers, err = c.numWorkers(ctx); err != nil {
		return false, 0, err
	}
	return oracle, workers, nil
}

// TableExists reports whether the backing table exists.
func (c *Coordinator) TableExists(ctx context.Context) (bool, error) {
	if err := c.acquire(); err != nil {
		return false, err
	}
	defer c.release()
	if missing := c.cfg.MissingAdminProps(); len(missing) > 0 {
		return false, fmt.Errorf("%w: missing required properties %v", domain.ErrConfiguration, missing)
	}
	return c.tableExists(ctx)
}

func (c *Coordinator) tableExists(ctx context.Context) (bool, error) {
	ok, err := c.tables.TableExists(ctx, c.cfg.TableName())
	if err != nil {
		return false, storageError("check table "+c.cfg.TableName(), err)
	}
	return ok, nil
}

// ApplicationConfig returns the shared configuration snapshot stored at
// initialize or by the last UpdateSharedConfig.
func (c *Coordinator) ApplicationConfig(ctx context.Context) (*appconfig.Configuration, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()
	return c.applicationConfig(ctx)
}

func (c *Coordinator) applicationConfig(ctx context.Context) (*appconfig.Configuration, error) {
	if err := c.requireInitialized(ctx); err != nil {
		return nil, err
	}
	data, err := c.get(ctx, domain.ConfigShared)
	if err != nil {
		return nil, err
	}
	shared, err := appconfig.Decode(data)
	if err != nil {
		return nil, coordinationError("decode "+domain.ConfigShared, err)
	}
	return shared, nil
}

// ConnectionConfig returns a copy of the local configuration.
func (c *Coordinator) ConnectionConfig() *appconfig.Configuration {
	return c.localConfig()
}

// MergedConfig returns the local configuration overlaid with the shared
// snapshot. Connection-scoped keys always come from the local side.
func (c *Coordinator) MergedConfig(ctx context.Context) (*appconfig.Configuration, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()
	shared, err := c.applicationConfig(ctx)
	if err != nil {
		return nil, err
	}
	merged := c.localConfig()
	merged.Merge(shared.Shared())
	return merged, nil
}

// Identity reads the identity recorded by the last initialize.
func (c *Coordinator) Identity(ctx context.Context) (domain.Identity, error) {
	if err := c.acquire(); err != nil {
		return domain.Identity{}, err
	}
	defer c.release()
	return c.identity(ctx)
}

func (c *Coordinator) identity(ctx context.Context) (domain.Identity, error) {
	if err := c.requireInitialized(ctx); err != nil {
		return domain.Identity{}, err
	}
	id := domain.Identity{ApplicationName: c.cfg.ApplicationName()}
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{domain.ConfigApplicationID, &id.ApplicationID},
		{domain.ConfigTableName, &id.TableName},
		{domain.ConfigInstanceName, &id.InstanceName},
		{domain.ConfigInstanceID, &id.InstanceID},
	} {
		data, err := c.get(ctx, f.path)
		if err != nil {
			return domain.Identity{}, err
		}
		*f.dst = string(data)
	}
	return id, nil
}

// Watermarks reads the oracle timestamp bounds.
func (c *Coordinator) Watermarks(ctx context.Context) (domain.Watermarks, error) {
	if err := c.acquire(); err != nil {
		return domain.Watermarks{}, err
	}
	defer c.release()
	return c.watermarks(ctx)
}

func (c *Coordinator) watermarks(ctx context.Context) (domain.Watermarks, error) {
	if err := c.requireInitialized(ctx); err != nil {
		return domain.Watermarks{}, err
	}
	var w domain.Watermarks
	for _, f := range []struct {
		path string
		dst  *uint64
	}{
		{domain.OracleMaxTimestamp, &w.MaxTimestamp},
		{domain.OracleGCTimestamp, &w.GCTimestamp},
	} {
		data, err := c.get(ctx, f.path)
		if err != nil {
			return domain.Watermarks{}, err
		}
		ts, err := domain.ParseTimestamp(data)
		if err != nil {
			return domain.Watermarks{}, coordinationError("parse "+f.path, err)
		}
		*f.dst = ts
	}
	return w, nil
}

// Status gathers every status query into one snapshot.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	if err := c.acquire(); err != nil {
		return Status{}, err
	}
	defer c.release()
	if err := c.checkAdminConfig(); err != nil {
		return Status{}, err
	}

	st := Status{ApplicationName: c.cfg.ApplicationName()}
	var err error
	if st.Initialized, err = c.isInitialized(ctx); err != nil {
		return Status{}, err
	}
	if st.OracleRunning, st.Workers, err = c.liveness(ctx); err != nil {
		return Status{}, err
	}
	st.Running = st.OracleRunning || st.Workers > 0
	if st.TableExists, err = c.tableExists(ctx); err != nil {
		return Status{}, err
	}
	if !st.Initialized {
		return st, nil
	}

	id, err := c.identity(ctx)
	if err != nil {
		return Status{}, err
	}
	w, err := c.watermarks(ctx)
	if err != nil {
		return Status{}, err
	}
	st.Identity, st.Watermarks = &id, &w
	return st, nil
}

func (c *Coordinator) requireInitialized(ctx context.Context) error {
	ok, err := c.isInitialized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrNotInitialized, c.cfg.ApplicationName(), c.cfg.AppZookeepers())
	}
	return nil
}

// get reads a node of the application namespace. A missing node of an
// initialized application means the namespace is incomplete.
func (c *Coordinator) get(ctx context.Context, p string) ([]byte, error) {
	app, err := c.appSession(ctx)
	if err != nil {
		return nil, err
	}
	data, err := app.Get(ctx, p)
	if errors.Is(err, ports.ErrNoNode) {
		return nil, fmt.Errorf("%w: %s is missing", domain.ErrNotInitialized, p)
	}
	if err != nil {
		return nil, coordinationError("read "+p, err)
	}
	return data, nil
}
