package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
)

// Remove drops the backing table and deletes the coordination namespace.
// Absent state is not an error, so Remove can be repeated.
func (c *Coordinator) Remove(ctx context.Context) error {
	return c.run(ctx, OpRemove, c.remove)
}

func (c *Coordinator) remove(ctx context.Context) error {
	if err := c.checkAdminConfig(); err != nil {
		return err
	}
	if err := c.checkStopped(ctx, "removed"); err != nil {
		return err
	}

	tableExists, err := c.tableExists(ctx)
	if err != nil {
		return err
	}
	if tableExists {
		c.logger.Info("dropping table", ports.String("table", c.cfg.TableName()))
		if err := c.dropTable(ctx); err != nil {
			return err
		}
	}

	initialized, err := c.isInitialized(ctx)
	if err != nil {
		return err
	}
	if initialized {
		c.logger.Info("deleting coordination namespace", ports.String("path", c.cfg.AppZookeepers()))
		if err := c.root.DeleteTree(ctx, c.appRoot()); err != nil {
			return coordinationError("delete "+c.appRoot(), err)
		}
	}
	return nil
}

// UpdateSharedConfig rewrites the shared configuration snapshot from the
// local configuration. Nothing else is touched.
func (c *Coordinator) UpdateSharedConfig(ctx context.Context) error {
	return c.run(ctx, OpUpdateSharedConfig, c.updateSharedConfig)
}

func (c *Coordinator) updateSharedConfig(ctx context.Context) error {
	if err := c.checkAdminConfig(); err != nil {
		return err
	}
	if err := c.checkStopped(ctx, "updated"); err != nil {
		return err
	}
	if err := c.requireInitialized(ctx); err != nil {
		return err
	}
	cfg := c.localConfig()
	if err := c.writeShared(ctx, cfg); err != nil {
		return err
	}
	c.logger.Info("updated shared configuration", ports.Int("properties", cfg.Shared().Len()))
	return nil
}

// checkStopped fails with domain.ErrApplicationRunning if an oracle or a
// worker is registered.
func (c *Coordinator) checkStopped(ctx context.Context, action string) error {
	oracle, workers, err := c.liveness(ctx)
	if err != nil {
		return err
	}
	switch {
	case oracle:
		return fmt.Errorf("%w: the oracle of %s is running and must be stopped before the application can be %s",
			domain.ErrApplicationRunning, c.cfg.ApplicationName(), action)
	case workers > 0:
		return fmt.Errorf("%w: %d workers of %s are running and must be stopped before the application can be %s",
			domain.ErrApplicationRunning, workers, c.cfg.ApplicationName(), action)
	}
	return nil
}
