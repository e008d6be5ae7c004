package validate

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// installedVersion reads the version field from
// <root>/node_modules/<name>/package.json. Any failure (missing file,
// unreadable, unparsable, empty field) is reported uniformly as "" — the
// validator does not distinguish a never-installed package from a corrupted
// install.
func installedVersion(root, name string) string {
	data, err := os.ReadFile(filepath.Join(root, "node_modules", name, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	return pkg.Version
}
