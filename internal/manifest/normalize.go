package manifest

import "strings"

// NormalizeLabel cleans a raw transcript into the canonical label form:
// lowercase, letters a-z and spaces only, single spaces between words, no
// leading or trailing space. Characters outside the whitelist are deleted,
// not transliterated, so "café" becomes "caf".
//
// Runs of three or more spaces collapse fully to one; the legacy generator
// only collapsed pairs, which could leave double spaces behind.
func NormalizeLabel(raw string) string {
	lower := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || r == ' ' {
			b.WriteRune(r)
		}
	}

	// Fields splits on space runs, so joining collapses them and trims.
	return strings.Join(strings.Fields(b.String()), " ")
}
