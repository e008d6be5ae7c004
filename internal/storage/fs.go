package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/naudiz/internal/checksum"
	"github.com/starford/naudiz/internal/models"
)

// ManifestName is the file name every manifest must carry.
const ManifestName = "package.json"

// FS implements Provider backed by the local file system.
type FS struct {
	root   string // absolute path to the workspace directory
	ignore []string
}

// NewFS creates a new FS provider rooted at the given directory.
// ignore holds doublestar glob patterns for directories (relative to root)
// whose manifests are skipped. The directory must already exist.
func NewFS(root string, ignore []string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("storage: invalid ignore pattern: %s", pattern)
		}
	}
	return &FS{root: abs, ignore: ignore}, nil
}

// Root returns the absolute workspace root directory.
func (f *FS) Root() string {
	return f.root
}

// Ignored reports whether the workspace-relative directory matches an ignore
// pattern or is a node_modules tree. node_modules is always implicitly
// excluded.
func (f *FS) Ignored(relDir string) bool {
	relDir = filepath.ToSlash(relDir)
	if relDir == "node_modules" || strings.HasPrefix(relDir, "node_modules/") ||
		strings.Contains(relDir, "/node_modules") {
		return true
	}
	for _, pattern := range f.ignore {
		if ok, _ := doublestar.Match(pattern, relDir); ok {
			return true
		}
	}
	return false
}

// safePath resolves a relative path against the workspace root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes workspace root: %s", rel)
	}
	return abs, nil
}

// List walks the workspace and returns metadata for every package.json that
// is not inside node_modules or an ignored directory.
func (f *FS) List() ([]models.ManifestMetadata, error) {
	var out []models.ManifestMetadata
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if rel != "." && f.Ignored(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() != ManifestName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, models.ManifestMetadata{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a workspace file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}
