// Package storage defines the workspace file-system abstraction.
package storage

import "github.com/starford/naudiz/internal/models"

// Provider is the read-only interface for workspace manifest access.
// Manifests are owned by the editor/filesystem; the checker never writes them.
type Provider interface {
	// List returns metadata for every package.json under the workspace,
	// honouring the ignore patterns. node_modules is always excluded.
	List() ([]models.ManifestMetadata, error)
	// Read returns the raw bytes of the manifest at path (relative to the
	// workspace root).
	Read(path string) ([]byte, error)
	// Root returns the absolute workspace root directory.
	Root() string
	// Ignored reports whether a workspace-relative directory is excluded
	// from scanning and watching.
	Ignored(relDir string) bool
}
