// Package models defines the domain types for Naudiz.
package models

import "time"

// Severity of a diagnostic.
type Severity string

// Diagnostic severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Kind is the machine-readable classification of a diagnostic.
type Kind string

// Diagnostic kinds.
const (
	KindNotInstalled    Kind = "not-installed"
	KindVersionMismatch Kind = "version-mismatch"
)

// Span is a half-open byte range [Start, End) inside the manifest source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Diagnostic reports one out-of-sync dependency in a manifest.
type Diagnostic struct {
	Name      string   `json:"name"`
	Declared  string   `json:"declared"`
	Installed string   `json:"installed,omitempty"` // empty when nothing is installed
	Kind      Kind     `json:"kind"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Span      Span     `json:"span"`
}

// Dependency is one declared dependency after merging the manifest sections.
type Dependency struct {
	Name  string `json:"name"`
	Range string `json:"range"`
}

// ManifestMetadata is a lightweight representation returned by list operations.
type ManifestMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
