// Package manifest parses package.json documents into a merged dependency list.
package manifest

import (
	"encoding/json"
	"sort"

	"github.com/starford/naudiz/internal/models"
)

// Result holds the output of parsing a manifest.
type Result struct {
	Name         string
	Dependencies []models.Dependency
}

type file struct {
	Name            string            `json:"name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Parse decodes raw package.json bytes and merges the dependencies and
// devDependencies sections into one list. A name appearing in both sections is
// not an error: the devDependencies entry wins (last-writer-wins merge).
// optionalDependencies and peerDependencies are deliberately excluded from the
// checked set.
//
// Output order is deterministic: names sorted within each section, first
// occurrence keeps its position on a duplicate.
func Parse(data []byte) (*Result, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	res := &Result{Name: f.Name}
	pos := make(map[string]int)

	for _, section := range []map[string]string{f.Dependencies, f.DevDependencies} {
		for _, name := range sortedKeys(section) {
			if i, ok := pos[name]; ok {
				res.Dependencies[i].Range = section[name]
				continue
			}
			pos[name] = len(res.Dependencies)
			res.Dependencies = append(res.Dependencies, models.Dependency{
				Name:  name,
				Range: section[name],
			})
		}
	}

	return res, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
