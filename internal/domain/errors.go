package domain

import "errors"

// Domain errors represent the error kinds surfaced by administrative
// operations. They are always wrapped with context; check them with errors.Is.
var (
	// ErrConfiguration is returned when required administrative settings are
	// missing or contradictory. It is raised before any store is touched.
	ErrConfiguration = errors.New("appkeeper: invalid configuration")

	// ErrAlreadyInitialized is returned when the coordination namespace exists
	// and clearing was not requested, when a concurrent initializer won the
	// create step, or when the application is running during initialize.
	ErrAlreadyInitialized = errors.New("appkeeper: application already initialized")

	// ErrTableExists is returned when the backing table exists and clearing
	// was not requested.
	ErrTableExists = errors.New("appkeeper: table already exists")

	// ErrApplicationRunning is returned when a mutating operation finds a live
	// oracle or worker registration.
	ErrApplicationRunning = errors.New("appkeeper: application is running")

	// ErrCoordination wraps I/O failures from the coordination service.
	ErrCoordination = errors.New("appkeeper: coordination service error")

	// ErrStorage wraps I/O failures from the table store or the artifact
	// namespace.
	ErrStorage = errors.New("appkeeper: storage service error")

	// ErrClosed is returned by operations on a closed coordinator.
	ErrClosed = errors.New("appkeeper: coordinator closed")
)

// ErrNotInitialized is returned when reading application state that was never
// created. It is a configuration error: the caller pointed at the wrong place
// or skipped initialize.
var ErrNotInitialized = &kindError{
	msg:  "appkeeper: application not initialized",
	kind: ErrConfiguration,
}

// ErrStaging is returned when dependency or observer artifacts cannot be
// copied into the distributed namespace. It is a storage error.
var ErrStaging = &kindError{
	msg:  "appkeeper: artifact staging failed",
	kind: ErrStorage,
}

// kindError is a sentinel that also matches a broader error kind.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }
