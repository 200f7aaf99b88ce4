// Package slug derives URL slugs from post titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Unicode spaces too: titles pasted from editors carry U+00A0 and friends.
	spaceRun  = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)
	nonWord   = regexp.MustCompile(`[^\w-]+`)
	hyphenRun = regexp.MustCompile(`--+`)
)

// Slugify lower-cases and trims title, turns whitespace runs into hyphens, strips
// everything outside [A-Za-z0-9_-] and collapses repeated hyphens.
// Slugify(Slugify(s)) == Slugify(s).
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimFunc(title, isSpace))
	s = spaceRun.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	return s
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
