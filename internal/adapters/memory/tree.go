package memory

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/appkeeper/internal/ports"
)

// Operation names accepted by Tree.FailOn.
const (
	OpExists   = "exists"
	OpCreate   = "create"
	OpDelete   = "delete"
	OpGet      = "get"
	OpChildren = "children"
	OpDial     = "dial"
)

type node struct {
	data      []byte
	ephemeral bool
}

// Tree is an in-memory coordination tree shared by every session dialed
// from it.
type Tree struct {
	mu    sync.Mutex
	nodes map[string]*node

	faults faults
	dials  atomic.Int64
	open   atomic.Int64
}

// NewTree returns a tree containing only the root node.
func NewTree() *Tree {
	return &Tree{nodes: map[string]*node{"/": {}}}
}

// Dial implements ports.CoordinationDialer.
func (t *Tree) Dial(ctx context.Context, servers, chroot string) (ports.CoordinationClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.faults.take(OpDial, chroot); err != nil {
		return nil, err
	}
	t.dials.Add(1)
	t.open.Add(1)
	return &Session{tree: t, chroot: path.Clean("/" + chroot)}, nil
}

// FailOn makes the next op on the absolute path target fail with err.
// An empty target matches any path.
func (t *Tree) FailOn(op, target string, err error) {
	t.faults.set(op, target, err)
}

// DialCount returns how many sessions were dialed.
func (t *Tree) DialCount() int { return int(t.dials.Load()) }

// OpenSessions returns how many dialed sessions are not closed.
func (t *Tree) OpenSessions() int { return int(t.open.Load()) }

// Register creates an ephemeral registration at the absolute path p, the way
// a running oracle or worker would. Missing parents are created.
func (t *Tree) Register(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureParents(p)
	t.nodes[p] = &node{data: []byte{}, ephemeral: true}
}

// Unregister removes a registration created with Register.
func (t *Tree) Unregister(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.nodes, p)
}

// Put writes data at the absolute path p, creating parents.
func (t *Tree) Put(p string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureParents(p)
	t.nodes[p] = &node{data: append([]byte(nil), data...)}
}

// Snapshot returns every node under the absolute path prefix with its data.
func (t *Tree) Snapshot(prefix string) map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string)
	for p, n := range t.nodes {
		if p == prefix || strings.HasPrefix(p, strings.TrimRight(prefix, "/")+"/") {
			out[p] = string(n.data)
		}
	}
	return out
}

func (t *Tree) ensureParents(p string) {
	for dir := path.Dir(p); dir != "/"; dir = path.Dir(dir) {
		if _, ok := t.nodes[dir]; !ok {
			t.nodes[dir] = &node{data: []byte{}}
		}
	}
}

// Session is a chrooted view of a Tree. It implements ports.CoordinationClient.
type Session struct {
	tree   *Tree
	chroot string
	closed atomic.Bool
}

func (s *Session) abs(p string) string {
	return path.Join(s.chroot, path.Clean("/"+p))
}

func (s *Session) check(ctx context.Context, op, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return errSessionClosed
	}
	return s.tree.faults.take(op, p)
}

// Exists implements ports.CoordinationClient.
func (s *Session) Exists(ctx context.Context, p string) (bool, error) {
	p = s.abs(p)
	if err := s.check(ctx, OpExists, p); err != nil {
		return false, err
	}
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	_, ok := s.tree.nodes[p]
	return ok, nil
}

// Create implements ports.CoordinationClient.
func (s *Session) Create(ctx context.Context, p string, data []byte, policy ports.NodePolicy) (ports.CreateResult, error) {
	p = s.abs(p)
	if err := s.check(ctx, OpCreate, p); err != nil {
		return 0, err
	}
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	if n, ok := s.tree.nodes[p]; ok {
		if policy != ports.OverwriteIfExists {
			return ports.AlreadyExists, nil
		}
		n.data = append([]byte(nil), data...)
		return ports.Created, nil
	}
	s.tree.ensureParents(p)
	s.tree.nodes[p] = &node{data: append([]byte(nil), data...)}
	return ports.Created, nil
}

// DeleteTree implements ports.CoordinationClient.
func (s *Session) DeleteTree(ctx context.Context, p string) error {
	p = s.abs(p)
	if err := s.check(ctx, OpDelete, p); err != nil {
		return err
	}
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	prefix := strings.TrimRight(p, "/") + "/"
	for k := range s.tree.nodes {
		if strings.HasPrefix(k, prefix) {
			delete(s.tree.nodes, k)
		}
	}
	if p != "/" {
		delete(s.tree.nodes, p)
	}
	return nil
}

// Get implements ports.CoordinationClient.
func (s *Session) Get(ctx context.Context, p string) ([]byte, error) {
	p = s.abs(p)
	if err := s.check(ctx, OpGet, p); err != nil {
		return nil, err
	}
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	n, ok := s.tree.nodes[p]
	if !ok {
		return nil, ports.ErrNoNode
	}
	return append([]byte(nil), n.data...), nil
}

// Children implements ports.CoordinationClient.
func (s *Session) Children(ctx context.Context, p string) ([]string, error) {
	p = s.abs(p)
	if err := s.check(ctx, OpChildren, p); err != nil {
		return nil, err
	}
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	if _, ok := s.tree.nodes[p]; !ok {
		return nil, ports.ErrNoNode
	}
	var names []string
	for k := range s.tree.nodes {
		if k != "/" && path.Dir(k) == p {
			names = append(names, path.Base(k))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close implements ports.CoordinationClient.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.tree.open.Add(-1)
	}
	return nil
}
