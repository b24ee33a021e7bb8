// Package slug derives URL slugs from titles and names.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug Slugify and Unique will produce, in bytes.
const MaxLength = 200

var (
	disallowed = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[-\s]+`)
)

// Slugify converts s to a lowercase ASCII slug: accents are decomposed and dropped,
// characters other than letters, digits, underscores, spaces and hyphens are removed,
// and runs of whitespace or hyphens become a single hyphen. The result never starts
// or ends with "-" or "_" and may be empty.
func Slugify(s string) string {
	ascii, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isNonASCII))), s)
	if err != nil {
		ascii = s
	}

	out := disallowed.ReplaceAllString(strings.ToLower(ascii), "")
	out = separators.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-_")

	return truncate(out, MaxLength)
}

// Generate slugifies source and falls back to fallback when nothing usable remains.
func Generate(source, fallback string) string {
	if s := Slugify(source); s != "" {
		return s
	}
	return fallback
}

// Unique returns base when taken reports it free, otherwise the first free candidate
// of base-1, base-2, ... Candidates are shortened so they never exceed MaxLength.
func Unique(base string, taken func(candidate string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 1; ; n++ {
		suffix := "-" + strconv.Itoa(n)
		candidate := strings.TrimRight(truncate(base, MaxLength-len(suffix)), "-_") + suffix
		if !taken(candidate) {
			return candidate
		}
	}
}

// UniqueAmong is Unique over a fixed set of slugs already in use.
func UniqueAmong(base string, existing []string) string {
	used := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		used[s] = struct{}{}
	}
	return Unique(base, func(candidate string) bool {
		_, ok := used[candidate]
		return ok
	})
}

func isNonASCII(r rune) bool {
	return r > unicode.MaxASCII
}

// truncate cuts s to at most max bytes, preferring the last hyphen boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, '-'); i > 0 {
		cut = cut[:i]
	}
	return strings.Trim(cut, "-_")
}
