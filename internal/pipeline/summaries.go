package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"srte/internal/aggregate"
	"srte/internal/report"
)

// summaryHeader is the column layout of the per-school summary export.
var summaryHeader = []string{
	"School", "Dept", "Course Title", "Lecturer Name",
	"TM Overall", "TM %", "TA Overall", "TA %", "CM Overall", "CM %",
	"IF Overall", "IF %", "PTA Overall", "PTA %", "ES Overall", "ES %",
	"No",
}

// WriteSummaries writes one CSV per school bucket into outDir and bundles
// them into srte_summaries.zip, returning the archive path. Buckets are
// written in name order so repeated runs produce identical archives.
func WriteSummaries(buckets map[string][]aggregate.Row, outDir string) (string, error) {
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	var files []string
	for _, name := range names {
		path := filepath.Join(outDir, name+"_summary.csv")
		if err := writeSummaryFile(path, buckets[name]); err != nil {
			return "", err
		}
		files = append(files, path)
	}

	archive := filepath.Join(outDir, "srte_summaries.zip")
	if err := report.Bundle(archive, files); err != nil {
		return "", err
	}
	return archive, nil
}

func writeSummaryFile(path string, rows []aggregate.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing summary %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return fmt.Errorf("writing summary %s: %w", filepath.Base(path), err)
	}
	for _, row := range rows {
		record := []string{row.School, row.Department, row.CourseTitle, row.LecturerName}
		for _, s := range row.Scores() {
			record = append(record, formatRaw(s.Raw), formatPct(s.Pct))
		}
		record = append(record, formatRaw(row.ES.Raw), formatPct(row.ES.Pct), strconv.Itoa(row.No))
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing summary %s: %w", filepath.Base(path), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing summary %s: %w", filepath.Base(path), err)
	}
	return nil
}

func formatRaw(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
func formatPct(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
