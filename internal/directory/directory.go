// Package directory loads and serves the lecturer reference roster.
package directory

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// RosterError reports a roster that cannot serve lookups: an unreadable
// file, malformed CSV, or a missing required column. It is a configuration
// problem surfaced once at load time; callers degrade to Empty.
type RosterError struct {
	Detail string
	Err    error
}

func (e *RosterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lecturer roster: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("lecturer roster: %s", e.Detail)
}

func (e *RosterError) Unwrap() error { return e.Err }

// Info holds the official affiliation of one lecturer.
type Info struct {
	Department string
	School     string
}

// Directory is the read-only lecturer roster: official identities plus the
// alias spellings that map to them. It is loaded once per run and never
// mutated afterwards, so it may be shared across runs.
type Directory struct {
	names   map[string]Info    // lowercased official name -> affiliation
	aliases map[string]string  // lowercased alias -> official name
}

// Empty returns a directory with no entries. Every lookup misses, which is
// the degraded mode the pipeline falls back to when the roster cannot be
// loaded.
func Empty() *Directory {
	return &Directory{
		names:   make(map[string]Info),
		aliases: make(map[string]string),
	}
}

// Len reports the number of official names in the roster.
func (d *Directory) Len() int {
	return len(d.names)
}

// Lookup resolves an alias (any casing, surrounding whitespace ignored) to
// the official name and affiliation. The second return is false on a miss.
func (d *Directory) Lookup(name string) (string, Info, bool) {
	official, ok := d.aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", Info{}, false
	}
	return official, d.names[strings.ToLower(official)], true
}

// LoadFile reads the roster from a CSV file.
func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return Empty(), &RosterError{Detail: "opening file", Err: err}
	}
	defer f.Close()
	return Load(f)
}

// Load reads the roster from CSV data with a header row. Required columns:
// Official Name, Department, School. Optional: Aliases (comma-separated).
// Each official name is also registered as an alias of itself. When the
// same alias is declared for two different official names the first
// declaration wins and the collision is logged.
func Load(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return Empty(), &RosterError{Detail: "reading file", Err: err}
	}
	if len(rows) == 0 {
		return Empty(), &RosterError{Detail: "file is empty"}
	}

	cols := make(map[string]int)
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Official Name", "Department", "School"} {
		if _, ok := cols[required]; !ok {
			return Empty(), &RosterError{Detail: fmt.Sprintf("missing required column %q", required)}
		}
	}
	aliasCol, hasAliases := cols["Aliases"]

	d := Empty()
	for _, row := range rows[1:] {
		official := strings.TrimSpace(field(row, cols["Official Name"]))
		if official == "" {
			continue
		}
		d.names[strings.ToLower(official)] = Info{
			Department: strings.TrimSpace(field(row, cols["Department"])),
			School:     strings.TrimSpace(field(row, cols["School"])),
		}
		d.addAlias(official, official)

		if hasAliases {
			for _, alias := range strings.Split(field(row, aliasCol), ",") {
				if alias = strings.TrimSpace(alias); alias != "" {
					d.addAlias(alias, official)
				}
			}
		}
	}

	return d, nil
}

func (d *Directory) addAlias(alias, official string) {
	key := strings.ToLower(alias)
	if existing, ok := d.aliases[key]; ok {
		if existing != official {
			log.Printf("Roster alias %q already maps to %q; ignoring mapping to %q", alias, existing, official)
		}
		return
	}
	d.aliases[key] = official
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
