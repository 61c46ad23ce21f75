package domain

import (
	"strconv"
	"strings"
)

// Identity identifies an initialized application. ApplicationID is generated
// once per successful initialize and changes only on a full re-initialize.
type Identity struct {
	ApplicationName string
	ApplicationID   string
	TableName       string
	InstanceName    string
	InstanceID      string
}

// Watermarks are the oracle timestamp bounds recorded in the coordination tree.
type Watermarks struct {
	MaxTimestamp uint64
	GCTimestamp  uint64
}

// ParseTimestamp decodes a watermark node payload.
func ParseTimestamp(b []byte) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
}
