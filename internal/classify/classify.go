// Package classify partitions aggregated rows into school buckets by
// course-title prefix and spots course codes the rule set does not know.
package classify

import (
	"log"
	"sort"
	"strings"

	"srte/internal/aggregate"
	"srte/internal/config"
)

// Classify places each row into every bucket whose prefix list matches the
// row's course title. The lists are not disjoint, so a cross-listed course
// lands in more than one bucket; that replication is intentional and must
// not be collapsed to a single owner. Buckets with no rows are omitted.
// Rows matching no bucket are dropped from the result and logged.
func Classify(rows []aggregate.Row, buckets []config.Bucket) map[string][]aggregate.Row {
	result := make(map[string][]aggregate.Row)

	for _, row := range rows {
		placed := false
		for _, bucket := range buckets {
			if matchesAny(row.CourseTitle, bucket.Prefixes) {
				result[bucket.Name] = append(result[bucket.Name], row)
				placed = true
			}
		}
		if !placed {
			log.Printf("Course %q (%s) matches no school bucket; dropped from summaries",
				row.CourseTitle, row.LecturerName)
		}
	}

	return result
}

// matchesAny reports whether the full course title starts with any of the
// prefixes. Matching is case-sensitive.
func matchesAny(title string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(title, p) {
			return true
		}
	}
	return false
}

// CoursePrefix isolates the leading alphabetic code of a course title: the
// first whitespace token, cut at its first digit. Empty or malformed
// titles yield an empty prefix and are treated as unknown, never an error.
func CoursePrefix(title string) string {
	fields := strings.Fields(strings.TrimSpace(title))
	if len(fields) == 0 {
		return ""
	}
	token := fields[0]
	for i, r := range token {
		if r >= '0' && r <= '9' {
			return token[:i]
		}
	}
	return token
}

// FindUnknownPrefixes returns the sorted unique course-code prefixes that
// appear in the rows but not in the known-code set. This is the "check new
// course codes" diagnostic; it is reported to the caller, never raised.
func FindUnknownPrefixes(titles []string, known map[string]bool) []string {
	seen := make(map[string]bool)
	for _, title := range titles {
		prefix := CoursePrefix(title)
		if prefix == "" || known[prefix] {
			continue
		}
		seen[prefix] = true
	}

	unknown := make([]string, 0, len(seen))
	for prefix := range seen {
		unknown = append(unknown, prefix)
	}
	sort.Strings(unknown)
	return unknown
}
