package aggregate

import (
	"math"
	"reflect"
	"testing"

	"srte/internal/ingest"
	"srte/internal/resolve"
)

// record builds a submission where every 1-5 item is score and the
// attendance pair is ptaScore (1-100 scale).
func record(course, lecturer string, score, ptaScore float64) resolve.Record {
	rec := resolve.Record{CourseTitle: course, LecturerName: lecturer}
	for i := 0; i < ingest.ItemCount; i++ {
		rec.Items[i] = score
	}
	pta := Dimensions[4]
	for j := pta.Start; j < pta.Start+pta.Count; j++ {
		rec.Items[j] = ptaScore
	}
	return rec
}

func TestAggregateSingleRecord(t *testing.T) {
	rows, errs := Aggregate([]resolve.Record{record("CSC101 Intro", "John Doe", 4, 80)})
	if len(errs) != 0 {
		t.Fatalf("unexpected quality errors: %v", errs)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	for i, s := range row.Scores() {
		if s.Raw != 4.00 {
			t.Errorf("dimension %s: expected raw 4.00, got %v", Dimensions[i].Name, s.Raw)
		}
		if s.Pct != 80.0 {
			t.Errorf("dimension %s: expected 80.0%%, got %v", Dimensions[i].Name, s.Pct)
		}
	}
	if row.ES.Raw != 4.00 || row.ES.Pct != 80.0 {
		t.Errorf("expected ES 4.00 / 80.0%%, got %v / %v", row.ES.Raw, row.ES.Pct)
	}
	if row.No != 1 {
		t.Errorf("expected No=1, got %d", row.No)
	}
}

func TestAggregatePerfectScores(t *testing.T) {
	rows, _ := Aggregate([]resolve.Record{record("CSC101 Intro", "John Doe", 5, 100)})
	row := rows[0]
	for _, s := range row.Scores() {
		if s.Raw != 5.00 || s.Pct != 100.0 {
			t.Fatalf("expected 5.00 / 100.0 exactly, got %v / %v", s.Raw, s.Pct)
		}
	}
	if row.ES.Raw != 5.00 || row.ES.Pct != 100.0 {
		t.Errorf("expected ES 5.00 / 100.0, got %v / %v", row.ES.Raw, row.ES.Pct)
	}
}

func TestAggregateGroupsByExactKey(t *testing.T) {
	rows, _ := Aggregate([]resolve.Record{
		record("CSC101 Intro", "John Doe", 4, 80),
		record("CSC101 Intro", "John Doe", 2, 40),
		record("CSC101 Intro", "Jane Smith", 5, 100),
		record("MTH101 Algebra", "John Doe", 3, 60),
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	// Sorted by course, then lecturer.
	if rows[0].LecturerName != "Jane Smith" || rows[1].LecturerName != "John Doe" {
		t.Errorf("unexpected row order: %q, %q", rows[0].LecturerName, rows[1].LecturerName)
	}
	if rows[2].CourseTitle != "MTH101 Algebra" {
		t.Errorf("unexpected third row: %q", rows[2].CourseTitle)
	}

	doe := rows[1]
	if doe.No != 2 {
		t.Errorf("expected No=2, got %d", doe.No)
	}
	if doe.TM.Raw != 3.00 || doe.PTA.Raw != 3.00 {
		t.Errorf("expected means of 3.00, got TM=%v PTA=%v", doe.TM.Raw, doe.PTA.Raw)
	}
}

func TestAggregateAttendanceRescaled(t *testing.T) {
	// 1-5 items at 4, attendance pair at 75 -> 75/100*5 = 3.75.
	rows, _ := Aggregate([]resolve.Record{record("CSC101 Intro", "John Doe", 4, 75)})
	row := rows[0]
	if row.PTA.Raw != 3.75 || row.PTA.Pct != 75.0 {
		t.Errorf("expected PTA 3.75 / 75.0, got %v / %v", row.PTA.Raw, row.PTA.Pct)
	}
	// ES = mean(4.00 x4, 3.75) = 3.95
	if row.ES.Raw != 3.95 || row.ES.Pct != 79.0 {
		t.Errorf("expected ES 3.95 / 79.0, got %v / %v", row.ES.Raw, row.ES.Pct)
	}
}

func TestAggregateRounding(t *testing.T) {
	// Two submissions with TM items 4 and 5: mean 4.5, pct 90.0.
	// Items 3 and 4: mean 3.5. Mixed per-item values exercise the
	// round-at-each-step rule.
	a := record("CSC101 Intro", "John Doe", 4, 80)
	b := record("CSC101 Intro", "John Doe", 5, 100)
	rows, _ := Aggregate([]resolve.Record{a, b})
	row := rows[0]
	if row.TM.Raw != 4.5 || row.TM.Pct != 90.0 {
		t.Errorf("expected TM 4.5 / 90.0, got %v / %v", row.TM.Raw, row.TM.Pct)
	}
	if row.ES.Raw != 4.5 {
		t.Errorf("expected ES 4.5, got %v", row.ES.Raw)
	}
}

func TestAggregateSkipsNaNCells(t *testing.T) {
	a := record("CSC101 Intro", "John Doe", 4, 80)
	a.Items[0] = math.NaN() // one unreadable TM cell
	rows, errs := Aggregate([]resolve.Record{a})
	if len(errs) != 0 {
		t.Fatalf("unexpected quality errors: %v", errs)
	}
	if rows[0].TM.Raw != 4.00 {
		t.Errorf("expected NaN cell skipped, TM=4.00, got %v", rows[0].TM.Raw)
	}
}

func TestAggregateAveragesPerRecordMeans(t *testing.T) {
	// A submission with a single readable TM cell is one opinion, not one
	// cell: its mean of 5.00 averages equally with the complete record's
	// 1.00, so TM = 3.00 rather than a pooled cell mean.
	a := record("CSC101 Intro", "John Doe", 1, 80)
	tm := Dimensions[0]
	for j := tm.Start; j < tm.Start+tm.Count; j++ {
		a.Items[j] = math.NaN()
	}
	a.Items[tm.Start] = 5
	b := record("CSC101 Intro", "John Doe", 1, 80)

	rows, errs := Aggregate([]resolve.Record{a, b})
	if len(errs) != 0 {
		t.Fatalf("unexpected quality errors: %v", errs)
	}
	row := rows[0]
	if row.TM.Raw != 3.00 || row.TM.Pct != 60.0 {
		t.Errorf("expected TM 3.00 / 60.0, got %v / %v", row.TM.Raw, row.TM.Pct)
	}
	// Remaining 1-5 dimensions stay 1.00, attendance 80 -> 4.00, so
	// ES = mean(3.00, 1.00, 1.00, 1.00, 4.00) = 2.00.
	if row.ES.Raw != 2.00 {
		t.Errorf("expected ES 2.00, got %v", row.ES.Raw)
	}
}

func TestAggregateBlankDimensionRecordSitsOut(t *testing.T) {
	// One record has no readable TM cells at all; the other's TM mean
	// stands alone while both still count toward No.
	a := record("CSC101 Intro", "John Doe", 4, 80)
	tm := Dimensions[0]
	for j := tm.Start; j < tm.Start+tm.Count; j++ {
		a.Items[j] = math.NaN()
	}
	b := record("CSC101 Intro", "John Doe", 2, 80)

	rows, errs := Aggregate([]resolve.Record{a, b})
	if len(errs) != 0 {
		t.Fatalf("unexpected quality errors: %v", errs)
	}
	if rows[0].TM.Raw != 2.00 {
		t.Errorf("expected TM 2.00 from the one readable record, got %v", rows[0].TM.Raw)
	}
	if rows[0].No != 2 {
		t.Errorf("expected No=2, got %d", rows[0].No)
	}
}

func TestAggregateAllNaNDimensionIsQualityError(t *testing.T) {
	a := record("CSC101 Intro", "John Doe", 4, 80)
	tm := Dimensions[0]
	for j := tm.Start; j < tm.Start+tm.Count; j++ {
		a.Items[j] = math.NaN()
	}
	rows, errs := Aggregate([]resolve.Record{a})
	if len(rows) != 0 {
		t.Errorf("expected offending group to be dropped, got %d rows", len(rows))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 quality error, got %d", len(errs))
	}
	if errs[0].Dimension != "TM" {
		t.Errorf("expected TM flagged, got %q", errs[0].Dimension)
	}
}

func TestAggregateQualityErrorDoesNotAbortRun(t *testing.T) {
	bad := record("BAD101 Broken", "Ghost", 4, 80)
	for i := range bad.Items {
		bad.Items[i] = math.NaN()
	}
	good := record("CSC101 Intro", "John Doe", 4, 80)

	rows, errs := Aggregate([]resolve.Record{bad, good})
	if len(rows) != 1 || rows[0].CourseTitle != "CSC101 Intro" {
		t.Errorf("expected the healthy group to survive, got %+v", rows)
	}
	if len(errs) != 1 {
		t.Errorf("expected 1 quality error, got %d", len(errs))
	}
}

func TestAggregateDeterministic(t *testing.T) {
	records := []resolve.Record{
		record("CSC101 Intro", "John Doe", 4, 80),
		record("MTH101 Algebra", "Jane Smith", 3, 60),
		record("CSC101 Intro", "John Doe", 5, 100),
	}
	first, _ := Aggregate(records)
	second, _ := Aggregate(records)
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical rows across runs on the same input")
	}
}
