package index

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/naudiz/internal/checksum"
	"github.com/starford/naudiz/internal/manifest"
	"github.com/starford/naudiz/internal/storage"
	"github.com/starford/naudiz/internal/validate"
)

// Sync walks the workspace and brings the index up to date:
//   - every manifest on disk is validated and its result stored
//   - manifests removed from disk are deleted from the index
//
// Validation is always re-run, even for unchanged manifests: the installed
// tree under node_modules can drift without the manifest's checksum changing.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if err := ValidateManifest(db, store, m.Path); err != nil {
			logger.Warn("sync: validate failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: validated", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteManifest(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// ValidateManifest reads the manifest at path, runs the validator against its
// package root, and atomically replaces the stored result.
func ValidateManifest(db *DB, store storage.Provider, path string) error {
	data, err := store.Read(path)
	if err != nil {
		return err
	}

	root := filepath.Join(store.Root(), filepath.Dir(path))
	res := validate.Manifest(data, root)

	name := ""
	if parsed, err := manifest.Parse(data); err == nil {
		name = parsed.Name
	}

	row := ManifestRow{
		Path:      path,
		Name:      name,
		Checksum:  checksum.Sum(data),
		Valid:     res.Valid(),
		UpdatedAt: time.Now(),
	}
	return db.ReplaceResult(row, res.Diagnostics)
}
