// Package appkeeper is the embedding API for the application lifecycle
// coordinator. Open wires a Coordinator to ZooKeeper, a table store and an
// artifact stager chosen from the application properties; options replace
// any of them.
//
// Basic usage:
//
//	cfg, err := appkeeper.LoadProperties("app.properties")
//	if err != nil {
//		return err
//	}
//	c, err := appkeeper.Open(ctx, cfg, appkeeper.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Initialize(ctx, appkeeper.InitOptions{}); err != nil {
//		return err
//	}
package appkeeper
