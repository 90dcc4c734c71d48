// Package worklink canonicalizes metacritic work urls into stable
// identity keys, so the same game linked through its main page,
// critic-reviews page or user-reviews page always maps to one key.
package worklink

import "strings"

// number of `/`-separated segments kept in a canonical link:
// https: + "" + host + category + title
const keptSegments = 5

// Normalize strips the query string and one trailing slash, then
// truncates the path to the work's title segment. It is total and
// idempotent; inputs with fewer segments pass through unchanged.
func Normalize(link string) string {
	base := link
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)
	base = strings.TrimSuffix(base, "/")

	parts := strings.Split(base, "/")
	if len(parts) >= keptSegments {
		base = strings.Join(parts[:keptSegments], "/")
	}
	return base
}
