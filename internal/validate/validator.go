// Package validate implements the dependency validator: it compares the
// ranges declared in a package.json manifest against the versions actually
// installed under the package root's node_modules.
package validate

import (
	"fmt"

	"github.com/starford/naudiz/internal/manifest"
	"github.com/starford/naudiz/internal/models"
	"github.com/starford/naudiz/internal/semver"
)

// Result is the full set of diagnostics for one manifest at one point in
// time. It always replaces any prior result for that manifest.
type Result struct {
	Diagnostics []models.Diagnostic
}

// Valid reports whether the manifest had no out-of-sync dependencies.
func (r *Result) Valid() bool {
	return len(r.Diagnostics) == 0
}

// Manifest validates raw package.json source against the installed packages
// under root. Every expected irregularity degrades rather than erroring:
// malformed JSON yields zero dependencies, an unreadable installed package
// counts as not installed, and a dependency whose declared range cannot be
// located in the source text is dropped.
func Manifest(source []byte, root string) *Result {
	res := &Result{Diagnostics: []models.Diagnostic{}}

	parsed, err := manifest.Parse(source)
	if err != nil {
		// Malformed manifest: treat as zero dependencies.
		return res
	}

	for _, dep := range parsed.Dependencies {
		installed := installedVersion(root, dep.Name)
		if installed != "" && semver.Satisfies(installed, dep.Range) {
			continue
		}

		span, ok := locateRange(source, dep.Name, dep.Range)
		if !ok {
			// Cannot highlight what we cannot find.
			continue
		}

		d := models.Diagnostic{
			Name:      dep.Name,
			Declared:  dep.Range,
			Installed: installed,
			Span:      span,
		}
		if installed == "" {
			d.Kind = models.KindNotInstalled
			d.Severity = models.SeverityWarning
			d.Message = "Dependency not installed"
		} else {
			d.Kind = models.KindVersionMismatch
			d.Severity = models.SeverityError
			d.Message = fmt.Sprintf("Installed version (%s) does not match declared version (%s)", installed, dep.Range)
		}
		res.Diagnostics = append(res.Diagnostics, d)
	}

	return res
}
