package api

import (
	"github.com/starford/naudiz/internal/index"
	"github.com/starford/naudiz/internal/valsvc"
)

// InstallRequest is the optional request body for POST /install/*.
// An empty body (or empty name) installs everything the manifest declares.
type InstallRequest struct {
	Name  string `json:"name"`
	Range string `json:"range"`
}

// ManifestDetail is the full validation result (aliased from the domain layer).
type ManifestDetail = valsvc.ManifestDetail

// ManifestListItem is a lightweight item in a list response (aliased from the domain layer).
type ManifestListItem = valsvc.ManifestListItem

// ManifestListResponse wraps manifest listings.
type ManifestListResponse struct {
	Manifests []ManifestListItem `json:"manifests"`
	Total     int                `json:"total"`
}

// SearchResult is a single diagnostics search hit in the API response.
type SearchResult struct {
	Manifest   string `json:"manifest"`
	Dependency string `json:"dependency"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SummaryResponse reports workspace-wide counts.
type SummaryResponse struct {
	Manifests   int `json:"manifests"`
	Invalid     int `json:"invalid"`
	Diagnostics int `json:"diagnostics"`
}

func searchResults(hits []index.SearchResult) []SearchResult {
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{
			Manifest:   h.Manifest,
			Dependency: h.Dependency,
			Kind:       string(h.Kind),
			Message:    h.Message,
		}
	}
	return out
}
