// Package aggregate rolls standardized submissions up into one scored row
// per (course, lecturer) pair across the five rating dimensions.
package aggregate

import (
	"fmt"
	"log"
	"math"
	"sort"

	"srte/internal/resolve"
)

// Dimension describes one rating dimension: its slice of the item columns
// and the scale its items are recorded on.
type Dimension struct {
	Name  string
	Label string
	Start int
	Count int
	Scale float64
}

// Dimensions is the fixed five-dimension layout of the raw sheet. The
// attendance pair is recorded on a 1-100 scale and rescaled to the common
// 0-5 range during aggregation.
var Dimensions = [5]Dimension{
	{Name: "TM", Label: "Teaching Methodology", Start: 0, Count: 7, Scale: 5},
	{Name: "TA", Label: "Teacher's Assessment Procedure", Start: 7, Count: 5, Scale: 5},
	{Name: "CM", Label: "Classroom Management", Start: 12, Count: 4, Scale: 5},
	{Name: "IF", Label: "Integration of Faith", Start: 16, Count: 5, Scale: 5},
	{Name: "PTA", Label: "Teacher's Attendance & Punctuality", Start: 21, Count: 2, Scale: 100},
}

// Score is one dimension's rollup: the 0-5 raw mean (2 decimals) and its
// percentage (1 decimal).
type Score struct {
	Raw float64
	Pct float64
}

// Row is the aggregation result for one (course, lecturer) group.
type Row struct {
	CourseTitle  string
	LecturerName string
	Department   string
	School       string
	TM, TA, CM   Score
	IF, PTA, ES  Score
	No           int // number of submissions in the group
}

// Scores returns the five dimension scores in layout order.
func (r *Row) Scores() [5]Score {
	return [5]Score{r.TM, r.TA, r.CM, r.IF, r.PTA}
}

// QualityError marks a group that could not be aggregated numerically. It
// is collected per offending group; the rest of the run proceeds.
type QualityError struct {
	CourseTitle  string
	LecturerName string
	Dimension    string
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("no numeric %s values for %q / %q", e.Dimension, e.CourseTitle, e.LecturerName)
}

// Aggregate groups records by exact (course title, lecturer name) and
// computes the dimension rollups. Rows come back sorted by course then
// lecturer so repeated runs over the same input are identical. Groups with
// a fully non-numeric dimension are dropped from the rows and reported as
// QualityErrors.
func Aggregate(records []resolve.Record) ([]Row, []*QualityError) {
	type key struct{ course, lecturer string }

	groups := make(map[key][]resolve.Record)
	var order []key
	for _, rec := range records {
		k := key{rec.CourseTitle, rec.LecturerName}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], rec)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].course != order[j].course {
			return order[i].course < order[j].course
		}
		return order[i].lecturer < order[j].lecturer
	})

	var rows []Row
	var errs []*QualityError
	for _, k := range order {
		group := groups[k]
		row, err := aggregateGroup(k.course, k.lecturer, group)
		if err != nil {
			log.Printf("Skipping group: %v", err)
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}

	log.Printf("Aggregated %d submissions into %d rows (%d groups skipped)",
		len(records), len(rows), len(errs))
	return rows, errs
}

func aggregateGroup(course, lecturer string, group []resolve.Record) (Row, *QualityError) {
	row := Row{
		CourseTitle:  course,
		LecturerName: lecturer,
		Department:   group[0].Department,
		School:       group[0].School,
		No:           len(group),
	}

	// A dimension's raw score averages one mean per record, so a
	// submission with a single readable cell weighs the same as a complete
	// one. Records with no readable cells in a dimension sit out of that
	// dimension's average.
	var raws [5]float64
	for i, dim := range Dimensions {
		sum, n := 0.0, 0
		for _, rec := range group {
			recSum, recN := 0.0, 0
			for j := dim.Start; j < dim.Start+dim.Count; j++ {
				if v := rec.Items[j]; !math.IsNaN(v) {
					recSum += v
					recN++
				}
			}
			if recN == 0 {
				continue
			}
			sum += recSum / float64(recN)
			n++
		}
		if n == 0 {
			return Row{}, &QualityError{CourseTitle: course, LecturerName: lecturer, Dimension: dim.Name}
		}

		raw := sum / float64(n)
		if dim.Scale == 100 {
			raw = raw / 100 * 5
		}
		raws[i] = round(raw, 2)
	}

	scores := [5]*Score{&row.TM, &row.TA, &row.CM, &row.IF, &row.PTA}
	for i, raw := range raws {
		scores[i].Raw = raw
		scores[i].Pct = round(raw/5*100, 1)
	}

	// The combined score averages the rounded dimension means, not the
	// unrounded ones.
	es := (raws[0] + raws[1] + raws[2] + raws[3] + raws[4]) / 5
	row.ES.Raw = round(es, 2)
	row.ES.Pct = round(row.ES.Raw/5*100, 1)

	return row, nil
}

// round rounds half away from zero at the given number of decimals.
// Rounding happens at each stated step, not only at final output.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
