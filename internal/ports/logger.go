package ports

import "github.com/bft-labs/appkeeper/pkg/log"

// Logger provides structured logging.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors, re-exported so application code depends on ports only.
var (
	String    = log.String
	Strings   = log.Strings
	Int       = log.Int
	Int64     = log.Int64
	Bool      = log.Bool
	Duration  = log.Duration
	Err       = log.Err
	Component = log.Component
)
