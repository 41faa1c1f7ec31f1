package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayName derives a human-readable name from a catalog id, e.g.
// "large-v3-turbo" becomes "Large V3 Turbo" and "tiny.en" becomes
// "Tiny (English)".
func displayName(id string) string {
	englishOnly := strings.HasSuffix(id, ".en")
	base := strings.TrimSuffix(id, ".en")
	name := titleCaser.String(strings.ReplaceAll(base, "-", " "))
	if englishOnly {
		name += " (English)"
	}
	return name
}
