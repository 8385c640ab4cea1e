// Package resolve standardizes free-text lecturer names against the roster.
package resolve

import (
	"log"
	"sort"
	"strings"

	"srte/internal/directory"
	"srte/internal/ingest"
)

// Record is a raw submission with its lecturer identity standardized.
// Matched names carry the roster's canonical casing and affiliation;
// unmatched names keep the trimmed raw text with empty affiliation.
type Record struct {
	CourseTitle  string
	LecturerName string
	Department   string
	School       string
	Items        [ingest.ItemCount]float64
}

// Result holds the outcome of a batch resolution.
type Result struct {
	Records   []Record
	Unmatched []string // sorted, deduplicated raw names that missed
	Matched   int
}

// Resolver maps raw lecturer names to canonical identities. It holds no
// per-run state; every record is resolved independently.
type Resolver struct {
	dir *directory.Directory
}

// New creates a resolver over a loaded directory.
func New(dir *directory.Directory) *Resolver {
	return &Resolver{dir: dir}
}

// ResolveName resolves a single raw name. On a miss the returned name is
// the trimmed input and matched is false.
func (r *Resolver) ResolveName(raw string) (name string, info directory.Info, matched bool) {
	official, info, ok := r.dir.Lookup(raw)
	if !ok {
		return strings.TrimSpace(raw), directory.Info{}, false
	}
	return official, info, true
}

// ResolveAll standardizes every raw record. Unresolvable names are
// collected once each, sorted, for caller-side reporting; they never halt
// the run.
func (r *Resolver) ResolveAll(records []ingest.RawRecord) *Result {
	res := &Result{}
	misses := make(map[string]bool)

	for _, raw := range records {
		name, info, ok := r.ResolveName(raw.LecturerName)
		if ok {
			res.Matched++
		} else {
			misses[name] = true
		}
		res.Records = append(res.Records, Record{
			CourseTitle:  raw.CourseTitle,
			LecturerName: name,
			Department:   info.Department,
			School:       info.School,
			Items:        raw.Items,
		})
	}

	for name := range misses {
		res.Unmatched = append(res.Unmatched, name)
	}
	sort.Strings(res.Unmatched)

	log.Printf("Resolved %d/%d lecturer names (%d unmatched)",
		res.Matched, len(records), len(res.Unmatched))
	return res
}

// ResolveSummary standardizes the lecturer identity of summary rows the
// same way ResolveAll treats raw records. School and Dept are overwritten
// from the roster on a match and left as loaded on a miss.
func (r *Resolver) ResolveSummary(rows []ingest.SummaryRow) ([]ingest.SummaryRow, []string) {
	misses := make(map[string]bool)
	out := make([]ingest.SummaryRow, len(rows))

	for i, row := range rows {
		name, info, ok := r.ResolveName(row.LecturerName)
		row.LecturerName = name
		if ok {
			row.Dept = info.Department
			row.School = info.School
		} else {
			misses[name] = true
		}
		out[i] = row
	}

	var unmatched []string
	for name := range misses {
		unmatched = append(unmatched, name)
	}
	sort.Strings(unmatched)
	return out, unmatched
}
