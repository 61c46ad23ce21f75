package app

import "time"

// Operation names an administrative operation.
type Operation string

const (
	OpInitialize         Operation = "initialize"
	OpRemove             Operation = "remove"
	OpUpdateSharedConfig Operation = "update_shared_config"
)

// OperationObserver is called after every mutating operation completes.
type OperationObserver interface {
	OnOperation(op Operation, duration time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) OnOperation(Operation, time.Duration, error) {}
