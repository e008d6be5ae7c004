package validate

import (
	"fmt"
	"regexp"

	"github.com/starford/naudiz/internal/models"
)

// locateRange finds the byte span of the declared range string for name
// inside the manifest source text. It matches the literal "<name>" key, a
// colon, and the quoted literal range; both literals are regexp-quoted so
// characters like ^ and . in ranges match verbatim. The returned span covers
// the range string itself, without its surrounding quotes.
func locateRange(source []byte, name, rng string) (models.Span, bool) {
	pattern := fmt.Sprintf(`"%s"\s*:\s*"(%s)"`, regexp.QuoteMeta(name), regexp.QuoteMeta(rng))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return models.Span{}, false
	}
	loc := re.FindSubmatchIndex(source)
	if loc == nil {
		return models.Span{}, false
	}
	return models.Span{Start: loc[2], End: loc[3]}, true
}
