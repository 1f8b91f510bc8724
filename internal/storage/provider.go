// Package storage defines the migration directory file-system abstraction.
package storage

// Provider is the interface for migration file operations.
//
// Paths may be relative to the root or absolute; absolute paths must lie
// under the root.
type Provider interface {
	// Root returns the absolute path of the migration directory.
	Root() string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path, keeping its permissions.
	Write(path string, content []byte) error
}
