package cliconfig

import "github.com/bft-labs/appkeeper/pkg/log"

// Logger returns the CLI logger writing to stderr at the configured level.
func (c *Config) Logger() *log.ZerologAdapter {
	return log.NewZerologAdapter(log.ParseLevel(c.LogLevel))
}
