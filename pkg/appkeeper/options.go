package appkeeper

import (
	"github.com/bft-labs/appkeeper/internal/app"
	"github.com/bft-labs/appkeeper/internal/ports"
	"github.com/bft-labs/appkeeper/pkg/log"
)

// Option configures optional behavior of Open.
type Option func(*options)

type options struct {
	logger   ports.Logger
	dialer   ports.CoordinationDialer
	tables   ports.TableStore
	stagers  ports.StagerFactory
	observer app.OperationObserver
}

func defaultOptions() options {
	return options{
		logger: &log.NoopLogger{},
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDialer replaces the ZooKeeper dialer.
func WithDialer(d ports.CoordinationDialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithTableStore replaces the table store selected by table.store.
// The coordinator takes ownership and closes it.
func WithTableStore(s ports.TableStore) Option {
	return func(o *options) {
		o.tables = s
	}
}

// WithStagerFactory replaces the factory used to stage jars and observer code.
func WithStagerFactory(f ports.StagerFactory) Option {
	return func(o *options) {
		o.stagers = f
	}
}

// WithObserver receives the outcome of every mutating operation.
func WithObserver(obs OperationObserver) Option {
	return func(o *options) {
		o.observer = obs
	}
}
