package index

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/naudiz/internal/models"
)

// ManifestRow represents a row in the manifests table.
type ManifestRow struct {
	Path      string
	Name      string
	Checksum  string
	Valid     bool
	UpdatedAt time.Time
}

// SearchResult is one diagnostics search hit.
type SearchResult struct {
	Manifest   string
	Dependency string
	Kind       models.Kind
	Message    string
}

// Summary holds workspace-wide counts.
type Summary struct {
	Manifests   int
	Invalid     int
	Diagnostics int
}

// ReplaceResult stores a manifest's validation result, swapping out any prior
// diagnostics inside one transaction. A manifest has at most one live result.
func (db *DB) ReplaceResult(m ManifestRow, diags []models.Diagnostic) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO manifests (path, name, checksum, valid, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			checksum   = excluded.checksum,
			valid      = excluded.valid,
			updated_at = excluded.updated_at
	`, m.Path, m.Name, m.Checksum, m.Valid, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert manifest: %w", err)
	}

	_, _ = tx.Exec(`DELETE FROM diagnostics WHERE manifest = ?`, m.Path)
	if len(diags) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO diagnostics
				(manifest, dependency, declared, installed, kind, severity, message, span_start, span_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare diagnostic insert: %w", err)
		}
		defer stmt.Close()
		for _, d := range diags {
			if _, err := stmt.Exec(m.Path, d.Name, d.Declared, d.Installed,
				string(d.Kind), string(d.Severity), d.Message, d.Span.Start, d.Span.End); err != nil {
				return fmt.Errorf("index: insert diagnostic: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteManifest removes a manifest and its diagnostics.
func (db *DB) DeleteManifest(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM diagnostics WHERE manifest = ?`, path)
	_, _ = tx.Exec(`DELETE FROM manifests WHERE path = ?`, path)

	return tx.Commit()
}

// GetManifest returns a manifest row, or nil when the path is not indexed.
func (db *DB) GetManifest(path string) (*ManifestRow, error) {
	var m ManifestRow
	var valid int
	err := db.conn.QueryRow(`
		SELECT path, name, checksum, valid, updated_at FROM manifests WHERE path = ?
	`, path).Scan(&m.Path, &m.Name, &m.Checksum, &valid, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get manifest: %w", err)
	}
	m.Valid = valid != 0
	return &m, nil
}

// GetDiagnostics returns the stored diagnostics for a manifest, ordered by
// span position so the result matches validation order.
func (db *DB) GetDiagnostics(path string) ([]models.Diagnostic, error) {
	rows, err := db.conn.Query(`
		SELECT dependency, declared, installed, kind, severity, message, span_start, span_end
		FROM diagnostics WHERE manifest = ? ORDER BY span_start
	`, path)
	if err != nil {
		return nil, fmt.Errorf("index: get diagnostics: %w", err)
	}
	defer rows.Close()

	out := []models.Diagnostic{}
	for rows.Next() {
		var d models.Diagnostic
		var kind, severity string
		if err := rows.Scan(&d.Name, &d.Declared, &d.Installed, &kind, &severity,
			&d.Message, &d.Span.Start, &d.Span.End); err != nil {
			return nil, err
		}
		d.Kind = models.Kind(kind)
		d.Severity = models.Severity(severity)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListManifests returns all indexed manifests ordered by path, each with its
// diagnostic count.
func (db *DB) ListManifests() ([]ManifestRow, map[string]int, error) {
	rows, err := db.conn.Query(`SELECT path, name, checksum, valid, updated_at FROM manifests ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: list manifests: %w", err)
	}
	defer rows.Close()

	var out []ManifestRow
	for rows.Next() {
		var m ManifestRow
		var valid int
		if err := rows.Scan(&m.Path, &m.Name, &m.Checksum, &valid, &m.UpdatedAt); err != nil {
			return nil, nil, err
		}
		m.Valid = valid != 0
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	counts := make(map[string]int)
	crows, err := db.conn.Query(`SELECT manifest, COUNT(*) FROM diagnostics GROUP BY manifest`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: diagnostic counts: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var path string
		var n int
		if err := crows.Scan(&path, &n); err != nil {
			return nil, nil, err
		}
		counts[path] = n
	}
	return out, counts, crows.Err()
}

// AllChecksums returns path → checksum for every indexed manifest.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM manifests`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Search performs a LIKE-based search over diagnostics by dependency name or
// message text.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT manifest, dependency, kind, message
		FROM diagnostics
		WHERE dependency LIKE ? OR message LIKE ?
		ORDER BY manifest, span_start
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var kind string
		if err := rows.Scan(&r.Manifest, &r.Dependency, &kind, &r.Message); err != nil {
			return nil, err
		}
		r.Kind = models.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summarize returns workspace-wide manifest and diagnostic counts.
func (db *DB) Summarize() (Summary, error) {
	var s Summary
	if err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN valid = 0 THEN 1 ELSE 0 END), 0) FROM manifests
	`).Scan(&s.Manifests, &s.Invalid); err != nil {
		return s, fmt.Errorf("index: summarize manifests: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM diagnostics`).Scan(&s.Diagnostics); err != nil {
		return s, fmt.Errorf("index: summarize diagnostics: %w", err)
	}
	return s, nil
}
