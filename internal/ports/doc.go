// Package ports defines the interfaces (ports) that connect the lifecycle
// coordinator to the external systems it administers.
//
// # Port Interfaces
//
//   - [CoordinationClient]: a session to the hierarchical coordination tree
//   - [CoordinationDialer]: opens coordination sessions
//   - [TableStore]: the remote table store holding bulk data
//   - [ArtifactStager]: copies local code into the distributed file namespace
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with ZooKeeper,
// Badger, S3 and the local file system, or with in-memory fakes for tests.
package ports
