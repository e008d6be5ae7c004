package index

import "github.com/starford/naudiz/internal/models"

// ResultIndex defines the interface for validation-result persistence.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ResultIndex interface {
	ReplaceResult(m ManifestRow, diags []models.Diagnostic) error
	DeleteManifest(path string) error
	GetManifest(path string) (*ManifestRow, error)
	GetDiagnostics(path string) ([]models.Diagnostic, error)
	ListManifests() ([]ManifestRow, map[string]int, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Summarize() (Summary, error)
	Close() error
}

// Verify *DB satisfies ResultIndex at compile time.
var _ ResultIndex = (*DB)(nil)
