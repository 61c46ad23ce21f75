// Package watch keeps the shared configuration snapshot in step with a local
// properties file. Each change to the file is debounced, reloaded and handed
// to a sync function.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/appkeeper/internal/appconfig"
	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
	"github.com/bft-labs/appkeeper/pkg/log"
)

// SyncFunc pushes a freshly loaded property file.
type SyncFunc func(ctx context.Context, props *appconfig.Configuration) error

// Config holds watcher options.
type Config struct {
	// Path is the properties file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before syncing.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RetryInitial and RetryMax bound the backoff between retries of a sync
	// that failed with a service error.
	// Default: 500 milliseconds and 10 seconds
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// DefaultConfig returns a Config with defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
		RetryInitial:  500 * time.Millisecond,
		RetryMax:      10 * time.Second,
	}
}

// Watcher monitors a properties file.
type Watcher struct {
	cfg    Config
	sync   SyncFunc
	logger ports.Logger

	mu       sync.Mutex
	debounce *time.Timer
	trigger  chan struct{}
}

// New creates a watcher. Zero durations in cfg take their defaults.
func New(cfg Config, fn SyncFunc, logger ports.Logger) *Watcher {
	def := DefaultConfig(cfg.Path)
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = def.RetryInitial
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = def.RetryMax
	}
	if logger == nil {
		logger = &log.NoopLogger{}
	}
	return &Watcher{
		cfg:     cfg,
		sync:    fn,
		logger:  logger.With(log.Component("watch"), log.String("path", cfg.Path)),
		trigger: make(chan struct{}, 1),
	}
}

// Run syncs once, then again after every change to the file, until ctx is
// done. The parent directory is watched so editors that replace the file are
// handled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.cfg.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Base(w.cfg.Path)

	w.syncWithRetry(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stopDebounce()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.debounceSync()

		case <-w.trigger:
			w.syncWithRetry(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", log.Err(err))
		}
	}
}

func (w *Watcher) debounceSync() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.cfg.DebounceDelay, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}

// syncWithRetry loads the file and syncs it. Service errors are retried with
// backoff; anything else waits for the next change.
func (w *Watcher) syncWithRetry(ctx context.Context) {
	props, err := appconfig.LoadFile(w.cfg.Path)
	if err != nil {
		w.logger.Warn("cannot load properties", log.Err(err))
		return
	}

	b := newBackoff(w.cfg.RetryInitial, w.cfg.RetryMax)
	for attempt := 1; ; attempt++ {
		err := w.sync(ctx, props)
		if err == nil {
			w.logger.Info("shared configuration synced", log.Int("properties", props.Len()), log.Int("attempt", attempt))
			return
		}
		if !retryable(err) {
			w.logger.Error("shared configuration sync refused", log.Err(err))
			return
		}
		w.logger.Warn("shared configuration sync failed, retrying", log.Err(err), log.Int("attempt", attempt))
		if !b.Sleep(ctx) {
			return
		}
	}
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrCoordination) || errors.Is(err, domain.ErrStorage)
}
