package ports

import (
	"context"
	"errors"
)

// ErrNoNode is returned when reading a node that does not exist.
var ErrNoNode = errors.New("node does not exist")

// NodePolicy decides what Create does when the node already exists.
type NodePolicy int

const (
	// FailIfExists leaves the existing node untouched and reports AlreadyExists.
	FailIfExists NodePolicy = iota
	// OverwriteIfExists replaces the data of the existing node.
	OverwriteIfExists
)

// String returns a human-readable representation of the policy.
func (p NodePolicy) String() string {
	switch p {
	case FailIfExists:
		return "FailIfExists"
	case OverwriteIfExists:
		return "OverwriteIfExists"
	default:
		return "Unknown"
	}
}

// CreateResult is the outcome of a Create that did not fail with an I/O error.
type CreateResult int

const (
	// Created means this call wrote the node.
	Created CreateResult = iota
	// AlreadyExists means the node was present and the policy was FailIfExists.
	AlreadyExists
)

// String returns a human-readable representation of the result.
func (r CreateResult) String() string {
	switch r {
	case Created:
		return "Created"
	case AlreadyExists:
		return "AlreadyExists"
	default:
		return "Unknown"
	}
}

// CoordinationClient is a session to the coordination tree. Paths are
// absolute within the session's chroot.
type CoordinationClient interface {
	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Create writes a persistent node, creating missing parents as empty
	// persistent nodes. An existing node yields AlreadyExists under
	// FailIfExists and is overwritten under OverwriteIfExists. Only I/O
	// failures are returned as errors.
	Create(ctx context.Context, path string, data []byte, policy NodePolicy) (CreateResult, error)

	// DeleteTree removes path and all of its descendants. A path that is
	// already absent is not an error.
	DeleteTree(ctx context.Context, path string) error

	// Get returns the data stored at path, or ErrNoNode.
	Get(ctx context.Context, path string) ([]byte, error)

	// Children returns the child names of path, or ErrNoNode.
	Children(ctx context.Context, path string) ([]string, error)

	// Close releases the session. Calling Close more than once is a no-op.
	Close() error
}

// CoordinationDialer opens coordination sessions.
type CoordinationDialer interface {
	// Dial connects to servers (comma separated host:port list) with every
	// path resolved under chroot. chroot "/" addresses the tree root.
	Dial(ctx context.Context, servers, chroot string) (CoordinationClient, error)
}
