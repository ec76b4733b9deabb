// Package domain holds the core data model of the session engine:
// conversation state variants, the farmer snapshot, normalized
// transport events and shared sentinel errors.
//
// The package has no dependencies on stores, transports or remote
// services; those live behind the interfaces in pkg/ports.
package domain
