// Package appconfig holds the application's property set.
//
// A Configuration is an ordered set of string properties. Keys under the
// "connection." prefix describe how this process reaches the coordination
// service and are never shared; every other key is part of the shared
// snapshot written to /config/shared and read back by every process of the
// application.
//
// The snapshot is serialized in Java .properties format so that it stays
// readable with standard tooling.
package appconfig
