// internal/normalize/language.go
package normalize

import (
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Language returns the canonical display name for an SDK language. Unknown
// names are returned trimmed but otherwise unchanged.
func Language(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if canonical, ok := enry.GetLanguageByAlias(strings.ToLower(name)); ok {
		return canonical
	}
	return name
}

// Languages canonicalizes a tag list, dropping blanks and duplicates. The
// result is never nil.
func Languages(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		lang := Language(n)
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}
