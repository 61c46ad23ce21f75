package memory

import "errors"

var errSessionClosed = errors.New("memory: session closed")
