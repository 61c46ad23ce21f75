package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/appkeeper/internal/appconfig"
	"github.com/bft-labs/appkeeper/internal/watch"
	"github.com/bft-labs/appkeeper/pkg/appkeeper"
	"github.com/bft-labs/appkeeper/pkg/log"
)

func (c *cli) initCommand() *cobra.Command {
	var opts appkeeper.InitOptions
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the application's coordination namespace and table",
		Long: `Creates the coordination namespace, stages dependency and observer
artifacts, creates the backing table and stores the shared configuration.
Existing state is an error unless the matching --clear flag is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				opts.ClearCoordination, opts.ClearTable = true, true
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Timeout)
			defer cancel()

			coord, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer coord.Close()

			if err := coord.Initialize(ctx, opts); err != nil {
				return hintInit(err)
			}
			id, err := coord.Identity(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s (id %s) on table %s\n",
				id.ApplicationName, id.ApplicationID, id.TableName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.ClearCoordination, "clear-zookeeper", false, "delete an existing coordination namespace first")
	cmd.Flags().BoolVar(&opts.ClearTable, "clear-table", false, "drop an existing table first")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "shorthand for --clear-zookeeper --clear-table")
	return cmd
}

// hintInit names the flag that would let initialize proceed.
func hintInit(err error) error {
	switch {
	case errors.Is(err, appkeeper.ErrApplicationRunning):
		return fmt.Errorf("%w (stop the application first)", err)
	case errors.Is(err, appkeeper.ErrAlreadyInitialized):
		return fmt.Errorf("%w (use --clear-zookeeper to replace it)", err)
	case errors.Is(err, appkeeper.ErrTableExists):
		return fmt.Errorf("%w (use --clear-table to replace it)", err)
	}
	return err
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Delete the application's coordination namespace and table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Timeout)
			defer cancel()

			coord, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer coord.Close()

			if err := coord.Remove(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", coord.ConnectionConfig().ApplicationName())
			return nil
		},
	}
}

func (c *cli) syncConfigCommand() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "sync-config",
		Short: "Replace the shared configuration snapshot with the local properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !follow {
				ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Timeout)
				defer cancel()
				props, err := c.cfg.BuildConfiguration()
				if err != nil {
					return configError(err)
				}
				if err := c.syncShared(ctx, props); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Shared configuration updated")
				return nil
			}

			if c.cfg.PropertiesFile == "" {
				return configError(errors.New("--watch requires --properties"))
			}
			w := watch.New(watch.DefaultConfig(c.cfg.PropertiesFile), func(ctx context.Context, fileProps *appconfig.Configuration) error {
				props, err := c.cfg.Overlay(fileProps)
				if err != nil {
					return configError(err)
				}
				ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
				defer cancel()
				return c.syncShared(ctx, props)
			}, c.logger)

			c.logger.Info("watching properties", log.String("path", c.cfg.PropertiesFile))
			if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "keep running and sync on every change to the properties file")
	return cmd
}

func (c *cli) syncShared(ctx context.Context, props *appkeeper.Configuration) error {
	coord, err := c.openWith(ctx, props)
	if err != nil {
		return err
	}
	defer coord.Close()
	return coord.UpdateSharedConfig(ctx)
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the application is initialized and running",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Timeout)
			defer cancel()

			coord, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer coord.Close()

			st, err := coord.Status(ctx)
			if err != nil {
				return err
			}
			c.metrics.RecordStatus(st)
			return printStatus(cmd.OutOrStdout(), st)
		},
	}
}

func (c *cli) configCommand() *cobra.Command {
	var merged bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the shared configuration snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Timeout)
			defer cancel()

			coord, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer coord.Close()

			var props *appkeeper.Configuration
			if merged {
				props, err = coord.MergedConfig(ctx)
			} else {
				props, err = coord.ApplicationConfig(ctx)
			}
			if err != nil {
				return err
			}
			return printProperties(cmd.OutOrStdout(), props)
		},
	}
	cmd.Flags().BoolVar(&merged, "merged", false, "overlay the snapshot on the local connection settings")
	return cmd
}
