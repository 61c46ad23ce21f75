package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bft-labs/appkeeper/internal/appconfig"
	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
)

// InitOptions controls what Initialize may clear.
type InitOptions struct {
	// ClearCoordination deletes an existing coordination namespace.
	ClearCoordination bool
	// ClearTable drops an existing backing table.
	ClearTable bool
}

// Initialize creates the coordination namespace, stages artifacts, creates
// the backing table and writes the shared configuration snapshot.
//
// Every precondition is checked before anything is mutated. When several
// processes initialize the same application concurrently exactly one wins;
// the others fail with domain.ErrAlreadyInitialized. A store failure after
// mutation began is returned as is and may leave the table or namespace
// behind; rerun with both clear options to repair.
func (c *Coordinator) Initialize(ctx context.Context, opts InitOptions) error {
	return c.run(ctx, OpInitialize, func(ctx context.Context) error {
		return c.initialize(ctx, opts)
	})
}

func (c *Coordinator) initialize(ctx context.Context, opts InitOptions) error {
	if err := c.checkAdminConfig(); err != nil {
		return err
	}
	plan, err := c.planStaging()
	if err != nil {
		return err
	}

	oracle, workers, err := c.liveness(ctx)
	if err != nil {
		return err
	}
	if oracle || workers > 0 {
		return fmt.Errorf("%w: %w: stop %s before initializing it (oracle=%t workers=%d)",
			domain.ErrAlreadyInitialized, domain.ErrApplicationRunning, c.cfg.ApplicationName(), oracle, workers)
	}

	initialized, err := c.isInitialized(ctx)
	if err != nil {
		return err
	}
	if initialized && !opts.ClearCoordination {
		return fmt.Errorf("%w: %s exists at %s; clear it to reinitialize",
			domain.ErrAlreadyInitialized, c.cfg.ApplicationName(), c.cfg.AppZookeepers())
	}
	tableExists, err := c.tableExists(ctx)
	if err != nil {
		return err
	}
	if tableExists && !opts.ClearTable {
		return fmt.Errorf("%w: %s; clear it to reinitialize", domain.ErrTableExists, c.cfg.TableName())
	}

	if tableExists {
		c.logger.Info("dropping table", ports.String("table", c.cfg.TableName()))
		if err := c.dropTable(ctx); err != nil {
			return err
		}
	}
	if initialized {
		c.logger.Info("clearing coordination namespace", ports.String("path", c.cfg.AppZookeepers()))
		if err := c.root.DeleteTree(ctx, c.appRoot()); err != nil {
			return coordinationError("delete "+c.appRoot(), err)
		}
	}

	id, err := c.newIdentity(ctx)
	if err != nil {
		return err
	}
	if err := c.createNamespace(ctx, id); err != nil {
		return err
	}

	snapshot := c.localConfig()
	classpathContext, err := c.stage(ctx, plan, snapshot)
	if err != nil {
		return err
	}

	tableCfg := domain.NewTableConfig(c.cfg.AppZookeepers(), classpathContext)
	if err := c.tables.CreateTable(ctx, c.cfg.TableName(), tableCfg); err != nil {
		if errors.Is(err, ports.ErrTableExists) {
			return fmt.Errorf("%w: %s created concurrently: %w", domain.ErrTableExists, c.cfg.TableName(), err)
		}
		return storageError("create table "+c.cfg.TableName(), err)
	}

	if err := c.writeShared(ctx, snapshot); err != nil {
		return err
	}

	c.logger.Info("initialized application",
		ports.String("app_id", id.ApplicationID),
		ports.String("table", id.TableName),
		ports.String("instance", id.InstanceName))
	return nil
}

func (c *Coordinator) newIdentity(ctx context.Context) (domain.Identity, error) {
	info, err := c.tables.Instance(ctx)
	if err != nil {
		return domain.Identity{}, storageError("read instance", err)
	}
	return domain.Identity{
		ApplicationName: c.cfg.ApplicationName(),
		ApplicationID:   uuid.NewString(),
		TableName:       c.cfg.TableName(),
		InstanceName:    info.Name,
		InstanceID:      info.ID,
	}, nil
}

// createNamespace claims the application chroot and writes the namespace
// nodes. Creating the chroot is the single point where concurrent
// initializers race.
func (c *Coordinator) createNamespace(ctx context.Context, id domain.Identity) error {
	res, err := c.root.Create(ctx, c.appRoot(), []byte{}, ports.FailIfExists)
	if err != nil {
		return coordinationError("create "+c.appRoot(), err)
	}
	if res == ports.AlreadyExists {
		return fmt.Errorf("%w: %s was created concurrently", domain.ErrAlreadyInitialized, c.cfg.AppZookeepers())
	}

	app, err := c.appSession(ctx)
	if err != nil {
		return err
	}
	for _, n := range domain.NamespaceNodes(id, c.cfg.TableName()) {
		res, err := app.Create(ctx, n.Path, n.Data, ports.FailIfExists)
		if err != nil {
			return coordinationError("create "+n.Path, err)
		}
		if res == ports.AlreadyExists {
			return fmt.Errorf("%w: %s was created concurrently", domain.ErrAlreadyInitialized, n.Path)
		}
	}
	return nil
}

func (c *Coordinator) dropTable(ctx context.Context) error {
	err := c.tables.DropTable(ctx, c.cfg.TableName())
	if err != nil && !errors.Is(err, ports.ErrTableNotFound) {
		return storageError("drop table "+c.cfg.TableName(), err)
	}
	return nil
}

func (c *Coordinator) writeShared(ctx context.Context, cfg *appconfig.Configuration) error {
	data, err := appconfig.Encode(cfg.Shared())
	if err != nil {
		return fmt.Errorf("%w: encode shared configuration: %w", domain.ErrConfiguration, err)
	}
	app, err := c.appSession(ctx)
	if err != nil {
		return err
	}
	if _, err := app.Create(ctx, domain.ConfigShared, data, ports.OverwriteIfExists); err != nil {
		return coordinationError("write "+domain.ConfigShared, err)
	}
	return nil
}
