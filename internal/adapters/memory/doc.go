// Package memory provides in-process implementations of the coordination
// and table-store ports. They back the test suites and the "memory" table
// store, and support fault injection so partial-failure paths can be
// exercised deterministically.
package memory
