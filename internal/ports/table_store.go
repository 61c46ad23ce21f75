package ports

import (
	"context"
	"errors"

	"github.com/bft-labs/appkeeper/internal/domain"
)

var (
	// ErrTableNotFound is returned when dropping a table that does not exist.
	ErrTableNotFound = errors.New("table does not exist")

	// ErrTableExists is returned when creating a table that already exists.
	ErrTableExists = errors.New("table already exists")
)

// InstanceInfo identifies the table-store instance.
type InstanceInfo struct {
	Name string
	ID   string
}

// TableStore administers tables in the remote table store.
type TableStore interface {
	// Instance returns the name and unique id of the store instance.
	Instance(ctx context.Context) (InstanceInfo, error)

	// TableExists reports whether the named table exists.
	TableExists(ctx context.Context, name string) (bool, error)

	// DropTable deletes the named table and its data.
	// Returns ErrTableNotFound when the table is absent.
	DropTable(ctx context.Context, name string) error

	// CreateTable creates the named table with the given configuration.
	// Returns ErrTableExists when the table is present.
	CreateTable(ctx context.Context, name string, cfg domain.TableConfig) error

	// SetInstanceProperty stores an instance-wide property.
	SetInstanceProperty(ctx context.Context, key, value string) error

	// Close releases the connection to the store.
	Close() error
}
