// Package domain contains the entities and value objects of the application
// control plane: the coordination-tree layout, the backing table definition,
// the application identity and the error taxonomy.
//
// The package has no dependencies on infrastructure. Adapters translate
// between these types and concrete coordination services or table stores.
//
// # Entities
//
//   - [Identity]: the application's identity recorded under /config
//   - [TableConfig]: how the backing table is created (locality groups,
//     iterators, stored properties)
//   - [Watermarks]: the oracle timestamp bounds stored under /oracle/server
package domain
