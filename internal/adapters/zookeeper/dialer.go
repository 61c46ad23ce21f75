// Package zookeeper implements the coordination port on top of a ZooKeeper
// ensemble. Chroots are applied client-side by prefixing every path.
package zookeeper

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
	"github.com/bft-labs/appkeeper/pkg/log"
)

// DefaultSessionTimeout is used when the dialer has no timeout configured.
const DefaultSessionTimeout = 30 * time.Second

// Dialer opens ZooKeeper sessions. It implements ports.CoordinationDialer.
type Dialer struct {
	timeout time.Duration
	logger  ports.Logger
}

// NewDialer creates a dialer with the given session timeout.
func NewDialer(timeout time.Duration, logger ports.Logger) *Dialer {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if logger == nil {
		logger = &log.NoopLogger{}
	}
	return &Dialer{timeout: timeout, logger: logger.With(log.Component("zookeeper"))}
}

// Dial connects to servers and waits until a session is established or ctx
// is done. Paths used on the returned client are relative to chroot.
func (d *Dialer) Dial(ctx context.Context, servers, chroot string) (ports.CoordinationClient, error) {
	hosts := domain.SplitServers(servers)
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no zookeeper servers in %q", servers)
	}

	conn, events, err := zk.Connect(hosts, d.timeout, zk.WithLogger(printfLogger{d.logger}))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", servers, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := awaitSession(waitCtx, events); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect %s: %w", servers, err)
	}

	go d.drain(events, chroot)

	d.logger.Debug("session established",
		log.String("servers", servers),
		log.String("chroot", chroot),
		log.Int64("session_id", conn.SessionID()))

	return &Client{conn: conn, chroot: path.Clean("/" + chroot)}, nil
}

func awaitSession(ctx context.Context, events <-chan zk.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return zk.ErrClosing
			}
			switch ev.State {
			case zk.StateHasSession:
				return nil
			case zk.StateAuthFailed:
				return zk.ErrAuthFailed
			}
		}
	}
}

// drain consumes session events until the connection closes.
func (d *Dialer) drain(events <-chan zk.Event, chroot string) {
	for ev := range events {
		if ev.Type != zk.EventSession {
			continue
		}
		d.logger.Debug("session state changed",
			log.String("chroot", chroot),
			log.String("state", ev.State.String()))
	}
}

type printfLogger struct {
	logger ports.Logger
}

func (l printfLogger) Printf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
