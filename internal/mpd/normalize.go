// SPDX-License-Identifier: MIT

package mpd

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// titleStripper decomposes accented characters and drops the combining
// marks, so "Café" and "Cafe" collapse to the same title key.
var titleStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle folds a playlist title into a canonical key for the
// title-only challenge variant: lowercase, accents stripped, emoji and
// punctuation removed, whitespace collapsed to single spaces.
// Returns "" when nothing survives.
func NormalizeTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(titleStripper, s); err == nil {
		s = folded
	}

	var b strings.Builder
	lastWasSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastWasSpace = false
		case !lastWasSpace:
			b.WriteRune(' ')
			lastWasSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}
