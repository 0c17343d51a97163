// Package releasenotes scrapes trino.io release-note pages and aggregates
// the changes between two engine versions, with a database-backed cache.
package releasenotes

import (
	"fmt"
	"strconv"
)

// ReleaseURLBase is the documentation location of individual release pages.
const ReleaseURLBase = "https://trino.io/docs/current/release"

// ReleaseURL returns the release-notes page for one version.
func ReleaseURL(version string) string {
	return fmt.Sprintf("%s/release-%s.html", ReleaseURLBase, version)
}

// Compare orders two version strings. Numeric versions compare as integers,
// anything else falls back to lexicographic order. Returns -1, 0 or 1.
func Compare(v1, v2 string) int {
	n1, err1 := strconv.Atoi(v1)
	n2, err2 := strconv.Atoi(v2)
	if err1 == nil && err2 == nil {
		switch {
		case n1 < n2:
			return -1
		case n1 > n2:
			return 1
		default:
			return 0
		}
	}
	switch {
	case v1 < v2:
		return -1
	case v1 > v2:
		return 1
	default:
		return 0
	}
}

// Range returns every version from the one after `from` up to and including
// `to`. Reversed arguments are swapped first. Non-numeric versions cannot be
// enumerated, so the result degrades to the two endpoints.
func Range(from, to string) []string {
	if Compare(from, to) > 0 {
		from, to = to, from
	}
	if from == to {
		return []string{to}
	}

	start, err1 := strconv.Atoi(from)
	end, err2 := strconv.Atoi(to)
	if err1 != nil || err2 != nil {
		return []string{from, to}
	}

	versions := make([]string, 0, end-start)
	for v := start + 1; v <= end; v++ {
		versions = append(versions, strconv.Itoa(v))
	}
	return versions
}
