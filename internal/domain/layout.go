package domain

import (
	"errors"
	"path"
	"strings"
)

// Coordination-tree layout, relative to the application chroot.
const (
	ConfigPath          = "/config"
	ConfigTableName     = "/config/table-name"
	ConfigInstanceName  = "/config/instance-name"
	ConfigInstanceID    = "/config/instance-id"
	ConfigApplicationID = "/config/app-id"
	ConfigShared        = "/config/shared"
	OracleServer        = "/oracle/server"
	OracleMaxTimestamp  = "/oracle/server/max-timestamp"
	OracleGCTimestamp   = "/oracle/server/gc-timestamp"
	Finders             = "/finders"

	// FinderPrefix marks worker registrations under /finders.
	FinderPrefix = "f-"

	// Initial watermark values written by initialize.
	InitialMaxTimestamp = "2"
	InitialGCTimestamp  = "0"
)

const (
	rootPath            = "/"
	chrootSeparator     = "/"
	serverListSeparator = ","
)

// Node is one entry of the namespace written by initialize.
type Node struct {
	Path string
	Data []byte
}

// NamespaceNodes returns the nodes initialize writes under the application
// chroot, in creation order. /config/shared is written separately once the
// table exists.
func NamespaceNodes(id Identity, tableName string) []Node {
	return []Node{
		{Path: ConfigPath, Data: []byte{}},
		{Path: ConfigTableName, Data: []byte(tableName)},
		{Path: ConfigInstanceName, Data: []byte(id.InstanceName)},
		{Path: ConfigInstanceID, Data: []byte(id.InstanceID)},
		{Path: ConfigApplicationID, Data: []byte(id.ApplicationID)},
		{Path: OracleServer, Data: []byte{}},
		{Path: OracleMaxTimestamp, Data: []byte(InitialMaxTimestamp)},
		{Path: OracleGCTimestamp, Data: []byte(InitialGCTimestamp)},
	}
}

// ParseRoot returns the chroot suffix of a coordination connection string.
// "zk1:2181,zk2:2181/apps/x" yields "/apps/x"; a string without a suffix
// yields "/". Trailing slashes are dropped.
func ParseRoot(connect string) string {
	i := strings.Index(connect, chrootSeparator)
	if i < 0 {
		return rootPath
	}
	root := path.Clean(connect[i:])
	if root == "." {
		return rootPath
	}
	return root
}

// ParseServers returns the server list of a connection string without the
// chroot suffix.
func ParseServers(connect string) string {
	if i := strings.Index(connect, chrootSeparator); i >= 0 {
		return connect[:i]
	}
	return connect
}

// SplitServers splits a server list into host:port entries.
func SplitServers(servers string) []string {
	var out []string
	for _, s := range strings.Split(servers, serverListSeparator) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AppConnect derives the application connection string by appending the
// application name to the instance chroot.
func AppConnect(instanceConnect, appName string) string {
	return strings.TrimRight(instanceConnect, chrootSeparator) + chrootSeparator + appName
}

// ValidApplicationName checks that name is usable as one segment of the
// coordination tree and of the artifact namespace.
func ValidApplicationName(name string) error {
	switch {
	case name == "":
		return errors.New("application name is empty")
	case name == "." || name == "..":
		return errors.New("application name must not be a relative path element")
	case strings.ContainsAny(name, "/\\:\x00"):
		return errors.New("application name must not contain '/', '\\', ':' or NUL")
	}
	return nil
}

// IsRoot reports whether a chroot denotes the tree root.
func IsRoot(chroot string) bool {
	return chroot == rootPath
}

// IsOracleRegistration reports whether a child name of /oracle/server is a
// live oracle registration. The watermark nodes share the parent and never
// count.
func IsOracleRegistration(name string) bool {
	p := path.Join(OracleServer, name)
	return p != OracleMaxTimestamp && p != OracleGCTimestamp
}

// IsFinder reports whether a child of /finders is a worker registration.
func IsFinder(name string) bool {
	return strings.HasPrefix(name, FinderPrefix)
}
