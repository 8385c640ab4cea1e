// Package comments cleans, deduplicates, and optionally sentiment-tags the
// free-text feedback attached to evaluations.
package comments

import (
	"regexp"
	"sort"
	"strings"

	"srte/internal/sentiment"
)

// Group is one distinct comment with its occurrence count. Polarity and
// Category are populated only when an analyzer was supplied.
type Group struct {
	Text     string
	Count    int
	Polarity float64
	Category string
}

// noise strips hyphens, ordinal markers like "1. ", and stray punctuation
// before the stoplist check.
var noise = regexp.MustCompile(`-|\d\.\s|[.?_!*]+`)

// stoplist holds the common "no comment" placeholders respondents type.
var stoplist = map[string]bool{
	"nan": true, "nil": true, "none": true, "nothing": true, "nill": true,
	"n/a": true, "n/c": true, "noting else": true, "nun": true,
}

// Clean normalizes one raw comment. The empty string means the comment
// carries no content and should be dropped.
func Clean(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" || isDigits(text) {
		return ""
	}

	text = noise.ReplaceAllString(text, "")
	if stoplist[strings.ToLower(strings.TrimSpace(text))] {
		return ""
	}
	return strings.TrimSpace(text)
}

// Aggregate cleans the raw comments, groups them by case-insensitive text
// equality (the first-encountered casing is the display text), and sorts
// the groups by descending count, ties broken by case-insensitive text.
// A nil analyzer disables sentiment tagging.
func Aggregate(raw []string, analyzer sentiment.Analyzer) []Group {
	type bucket struct {
		text     string
		count    int
		polarity float64
	}

	buckets := make(map[string]*bucket)
	for _, r := range raw {
		text := Clean(r)
		if text == "" {
			continue
		}

		var polarity float64
		if analyzer != nil {
			polarity = analyzer.Polarity(text)
		}

		key := strings.ToLower(text)
		if b, ok := buckets[key]; ok {
			b.count++
			b.polarity += polarity
		} else {
			buckets[key] = &bucket{text: text, count: 1, polarity: polarity}
		}
	}

	groups := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		g := Group{Text: b.text, Count: b.count}
		if analyzer != nil {
			g.Polarity = b.polarity / float64(b.count)
			g.Category = sentiment.Categorize(g.Polarity)
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return strings.ToLower(groups[i].Text) < strings.ToLower(groups[j].Text)
	})
	return groups
}

// SectionPolarity averages the group polarities of one feedback section
// (likes or dislikes). ok is false when there is nothing to average.
func SectionPolarity(groups []Group) (avg float64, category string, ok bool) {
	if len(groups) == 0 {
		return 0, "", false
	}
	sum := 0.0
	for _, g := range groups {
		sum += g.Polarity
	}
	avg = sum / float64(len(groups))
	return avg, sentiment.Categorize(avg), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
