package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/go-zookeeper/zk"

	"github.com/bft-labs/appkeeper/internal/ports"
)

// maxCreateAttempts bounds the create/set race loop for OverwriteIfExists.
const maxCreateAttempts = 5

var acl = zk.WorldACL(zk.PermAll)

// Client is a chrooted ZooKeeper session.
type Client struct {
	conn   *zk.Conn
	chroot string

	closeOnce sync.Once
}

func (c *Client) abs(p string) string {
	return path.Join(c.chroot, path.Clean("/"+p))
}

// Exists implements ports.CoordinationClient.
func (c *Client) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, _, err := c.conn.Exists(c.abs(p))
	return ok, err
}

// Create implements ports.CoordinationClient. Missing parents are created
// as empty persistent nodes.
func (c *Client) Create(ctx context.Context, p string, data []byte, policy ports.NodePolicy) (ports.CreateResult, error) {
	full := c.abs(p)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := c.createWithParents(full, data)
		switch {
		case err == nil:
			return ports.Created, nil
		case !errors.Is(err, zk.ErrNodeExists):
			return 0, err
		case policy == ports.FailIfExists:
			return ports.AlreadyExists, nil
		}

		_, err = c.conn.Set(full, data, -1)
		switch {
		case err == nil:
			return ports.Created, nil
		case errors.Is(err, zk.ErrNoNode):
			// deleted between create and set; try again
			continue
		default:
			return 0, err
		}
	}
	return 0, fmt.Errorf("overwrite %s: node kept changing", full)
}

func (c *Client) createWithParents(full string, data []byte) error {
	_, err := c.conn.Create(full, data, 0, acl)
	if !errors.Is(err, zk.ErrNoNode) {
		return err
	}
	if err := c.ensurePath(path.Dir(full)); err != nil {
		return err
	}
	_, err = c.conn.Create(full, data, 0, acl)
	return err
}

func (c *Client) ensurePath(dir string) error {
	if dir == "/" {
		return nil
	}
	_, err := c.conn.Create(dir, []byte{}, 0, acl)
	switch {
	case err == nil, errors.Is(err, zk.ErrNodeExists):
		return nil
	case errors.Is(err, zk.ErrNoNode):
		if err := c.ensurePath(path.Dir(dir)); err != nil {
			return err
		}
		_, err = c.conn.Create(dir, []byte{}, 0, acl)
		if errors.Is(err, zk.ErrNodeExists) {
			return nil
		}
		return err
	default:
		return err
	}
}

// DeleteTree implements ports.CoordinationClient. Nodes removed concurrently
// are ignored.
func (c *Client) DeleteTree(ctx context.Context, p string) error {
	return c.deleteRecursive(ctx, c.abs(p))
}

func (c *Client) deleteRecursive(ctx context.Context, full string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	children, _, err := c.conn.Children(full)
	if errors.Is(err, zk.ErrNoNode) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := c.deleteRecursive(ctx, path.Join(full, child)); err != nil {
			return err
		}
	}
	if full == "/" {
		return nil
	}
	err = c.conn.Delete(full, -1)
	switch {
	case err == nil, errors.Is(err, zk.ErrNoNode):
		return nil
	case errors.Is(err, zk.ErrNotEmpty):
		// a child appeared while deleting
		return c.deleteRecursive(ctx, full)
	default:
		return err
	}
}

// Get implements ports.CoordinationClient.
func (c *Client) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := c.conn.Get(c.abs(p))
	if errors.Is(err, zk.ErrNoNode) {
		return nil, fmt.Errorf("%w: %s", ports.ErrNoNode, p)
	}
	return data, err
}

// Children implements ports.CoordinationClient.
func (c *Client) Children(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, _, err := c.conn.Children(c.abs(p))
	if errors.Is(err, zk.ErrNoNode) {
		return nil, fmt.Errorf("%w: %s", ports.ErrNoNode, p)
	}
	return names, err
}

// Close implements ports.CoordinationClient.
func (c *Client) Close() error {
	c.closeOnce.Do(c.conn.Close)
	return nil
}
