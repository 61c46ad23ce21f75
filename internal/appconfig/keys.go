package appconfig

import "time"

// ConnectionPrefix marks connection-scoped keys, excluded from the shared snapshot.
const ConnectionPrefix = "connection."

// Property keys.
const (
	KeyApplicationName  = "connection.application.name"
	KeyZookeepers       = "connection.zookeepers"
	KeyZookeeperTimeout = "connection.zookeeper.timeout"

	KeyTableName     = "table.name"
	KeyTableInstance = "table.instance"
	KeyTableStore    = "table.store"
	KeyTableStoreDir = "table.store.dir"

	// KeyTableJars is an explicit comma separated list of dependency jars.
	KeyTableJars = "table.jars"
	// KeyTableJarsSearch is a comma separated list of globs resolved when
	// KeyTableJars is unset and a dfs root is configured.
	KeyTableJarsSearch = "table.jars.search"
	// KeyTableClasspath is a pre-staged classpath used as is.
	KeyTableClasspath = "table.classpath"

	KeyDFSRoot    = "dfs.root"
	KeyS3Endpoint = "dfs.s3.endpoint"
	KeyS3Region   = "dfs.s3.region"
	KeyS3Insecure = "dfs.s3.insecure"

	KeyObserverJarsURL = "observer.jars.url"
	KeyObserverInitDir = "observer.init.dir"
)

// Defaults.
const (
	DefaultZookeepers       = "localhost/appkeeper"
	DefaultZookeeperTimeout = 30 * time.Second
	DefaultTableStore       = "badger"
)

// requiredAdminKeys must be present for any administrative operation.
var requiredAdminKeys = []string{
	KeyApplicationName,
	KeyZookeepers,
	KeyTableName,
	KeyTableInstance,
}
