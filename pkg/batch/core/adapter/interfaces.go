// Package adapter defines the contracts shared by every external resource adapter
// (databases, object storage).
package adapter

// ResourceConnection represents a named connection to an external resource.
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "sqlite", "gcs").
	Type() string
	// Name returns the connection name as configured (e.g., "source", "output").
	Name() string
}
