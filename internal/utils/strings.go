package utils

import (
	"strings"

	"golang.org/x/text/cases"
)

// LikeEscapeChar is the escape character paired with EscapeLike in SQL LIKE clauses.
const LikeEscapeChar = `\`

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so user input matches literally.
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}

// FoldKey returns the Unicode case-folded form of s with surrounding space trimmed.
// SQLite's lower() and LIKE only fold ASCII, so case-insensitive columns store this key
// and queries compare against it.
func FoldKey(s string) string {
	// A Caser is stateful and must not be shared between goroutines
	return cases.Fold().String(strings.TrimSpace(s))
}
