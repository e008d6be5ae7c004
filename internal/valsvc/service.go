// Package valsvc coordinates storage, validation, the result index, and the
// package-manager bridge.
package valsvc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/naudiz/internal/apperr"
	"github.com/starford/naudiz/internal/checksum"
	"github.com/starford/naudiz/internal/index"
	"github.com/starford/naudiz/internal/manifest"
	"github.com/starford/naudiz/internal/models"
	"github.com/starford/naudiz/internal/pkgmgr"
	"github.com/starford/naudiz/internal/storage"
	"github.com/starford/naudiz/internal/validate"
)

// ManifestDetail is the full validation result for one manifest.
type ManifestDetail struct {
	Path        string              `json:"path"`
	Name        string              `json:"name"`
	PackageRoot string              `json:"package_root"`
	Checksum    string              `json:"checksum"`
	Valid       bool                `json:"valid"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ManifestListItem is a lightweight item in a list response.
type ManifestListItem struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Valid       bool      `json:"valid"`
	Diagnostics int       `json:"diagnostics"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InstallReport describes an executed install command.
type InstallReport struct {
	Manifest string `json:"manifest"`
	Root     string `json:"root"`
	Command  string `json:"command"`
}

// InstallRunner executes a package manager install in root. It exists so
// tests can stub out the exec call.
type InstallRunner func(ctx context.Context, root, name, rng string) error

// Service exposes the validation operations consumed by the API and MCP
// surfaces.
type Service struct {
	store storage.Provider
	db    *index.DB
	run   InstallRunner
}

// NewService creates a new validation service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db, run: pkgmgr.Run}
}

// WithInstallRunner overrides the install runner. Intended for tests.
func (s *Service) WithInstallRunner(run InstallRunner) *Service {
	s.run = run
	return s
}

// List returns all indexed manifests with their diagnostic counts.
func (s *Service) List(_ context.Context) ([]ManifestListItem, error) {
	rows, counts, err := s.db.ListManifests()
	if err != nil {
		return nil, err
	}
	items := make([]ManifestListItem, len(rows))
	for i, r := range rows {
		items[i] = ManifestListItem{
			Path:        r.Path,
			Name:        r.Name,
			Valid:       r.Valid,
			Diagnostics: counts[r.Path],
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return items, nil
}

// Get returns the stored validation result for a manifest.
func (s *Service) Get(_ context.Context, path string) (*ManifestDetail, error) {
	row, err := s.db.GetManifest(path)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.ErrNotFound
	}
	diags, err := s.db.GetDiagnostics(path)
	if err != nil {
		return nil, err
	}
	return &ManifestDetail{
		Path:        row.Path,
		Name:        row.Name,
		PackageRoot: s.packageRoot(path),
		Checksum:    row.Checksum,
		Valid:       row.Valid,
		Diagnostics: diags,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// Validate re-runs validation for a manifest and stores the fresh result,
// fully replacing the prior one.
func (s *Service) Validate(_ context.Context, path string) (*ManifestDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// The manifest vanished; drop any stored result too.
			_ = s.db.DeleteManifest(path)
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	root := s.packageRoot(path)
	res := validate.Manifest(data, root)

	name := ""
	if parsed, parseErr := manifest.Parse(data); parseErr == nil {
		name = parsed.Name
	}

	now := time.Now()
	row := index.ManifestRow{
		Path:      path,
		Name:      name,
		Checksum:  checksum.Sum(data),
		Valid:     res.Valid(),
		UpdatedAt: now,
	}
	if err := s.db.ReplaceResult(row, res.Diagnostics); err != nil {
		return nil, err
	}

	return &ManifestDetail{
		Path:        path,
		Name:        name,
		PackageRoot: root,
		Checksum:    row.Checksum,
		Valid:       res.Valid(),
		Diagnostics: res.Diagnostics,
		UpdatedAt:   now,
	}, nil
}

// Install runs the detected package manager in the manifest's package root,
// installing name@rng (or everything when name is empty), then re-validates.
func (s *Service) Install(ctx context.Context, path, name, rng string) (*InstallReport, error) {
	if _, err := s.store.Read(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	root := s.packageRoot(path)
	if err := s.run(ctx, root, name, rng); err != nil {
		return nil, err
	}

	// The watcher will usually catch the node_modules churn too, but the
	// caller wants the fresh result now.
	if _, err := s.Validate(ctx, path); err != nil {
		return nil, err
	}

	return &InstallReport{
		Manifest: path,
		Root:     root,
		Command:  pkgmgr.CommandString(root, name, rng),
	}, nil
}

// InstallCommand returns the command line an external collaborator should run
// to remediate a manifest, without executing it.
func (s *Service) InstallCommand(_ context.Context, path, name, rng string) (string, string, error) {
	if _, err := s.store.Read(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", apperr.ErrNotFound
		}
		return "", "", err
	}
	root := s.packageRoot(path)
	return pkgmgr.CommandString(root, name, rng), root, nil
}

// Search finds stored diagnostics by dependency name or message text.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Summary returns workspace-wide counts.
func (s *Service) Summary(_ context.Context) (index.Summary, error) {
	return s.db.Summarize()
}

// packageRoot resolves the absolute directory containing the manifest.
func (s *Service) packageRoot(path string) string {
	dir := filepath.Dir(path)
	if dir == "." {
		return s.store.Root()
	}
	return filepath.Join(s.store.Root(), dir)
}
