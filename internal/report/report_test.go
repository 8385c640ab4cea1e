package report

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"srte/internal/aggregate"
	"srte/internal/comments"
	"srte/internal/ingest"
)

var testMeta = Meta{
	Institution: "BABCOCK UNIVERSITY",
	Office:      "OFFICE OF INSTITUTIONAL EFFECTIVENESS",
	Survey:      "STUDENT RATING OF TEACHING EFFECTIVENESS (SRTE)",
	Semester:    "FIRST",
	Session:     "2025/2026",
}

func testRow() Row {
	pop, rate := 30.0, 83.3
	score := aggregate.Score{Raw: 4.00, Pct: 80.0}
	return Row{
		School:       "Sciences",
		Dept:         "Computer Science",
		CourseTitle:  "CSC101 Intro",
		LecturerName: "John Doe",
		TM:           score, TA: score, CM: score, IF: score, PTA: score, ES: score,
		No:       25,
		ClassPop: &pop,
		RespRate: &rate,
	}
}

func TestBuildMarkdownLayout(t *testing.T) {
	fb := Feedback{
		Likes:     []comments.Group{{Text: "Great class", Count: 3, Polarity: 0.5, Category: "Positive"}},
		Dislikes:  []comments.Group{{Text: "Too fast", Count: 1, Polarity: -0.5, Category: "Negative"}},
		Sentiment: true,
	}
	doc := BuildMarkdown(testMeta, testRow(), fb)

	for _, want := range []string{
		"# BABCOCK UNIVERSITY",
		"FIRST SEMESTER OF 2025/2026 ACADEMIC SESSION",
		"SCHOOL: Sciences",
		"NAME OF LECTURER: John Doe",
		"| Teaching Methodology | 4.00 | 80.0% |",
		"| Teacher's Attendance & Punctuality | 4.00 | 80.0% |",
		"| **Evaluation Score** | **4.00** | **80.0%** |",
		"- Great class (x3) - Positive",
		"- Too fast - Negative",
		"Overall Sentiment for Likes: Positive (Avg. Polarity: 0.50)",
		"No. of students who took this course: 30",
		"No. of students who evaluated this course: 25",
		"Percent of students who evaluated this course: 83.3%",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("expected document to contain %q", want)
		}
	}

	if strings.Contains(doc, "evaluation is invalid") {
		t.Error("did not expect invalidity notice for a valid row")
	}
}

func TestBuildMarkdownInvalidityNotice(t *testing.T) {
	row := testRow()
	pop := 10.0
	row.ClassPop = &pop // fewer registered than evaluated
	doc := BuildMarkdown(testMeta, row, Feedback{})
	if !strings.Contains(doc, "evaluation is invalid") {
		t.Error("expected invalidity notice when No exceeds class population")
	}
}

func TestBuildMarkdownEmptySections(t *testing.T) {
	doc := BuildMarkdown(testMeta, testRow(), Feedback{})
	if !strings.Contains(doc, "No specific likes mentioned.") {
		t.Error("expected placeholder for empty likes")
	}
	if !strings.Contains(doc, "No specific dislikes mentioned.") {
		t.Error("expected placeholder for empty dislikes")
	}
}

func TestBuildMarkdownWithoutClassList(t *testing.T) {
	row := testRow()
	row.ClassPop = nil
	row.RespRate = nil
	doc := BuildMarkdown(testMeta, row, Feedback{})
	if strings.Contains(doc, "evaluation is invalid") {
		t.Error("invalidity cannot be decided without a class population")
	}
	if !strings.Contains(doc, "No. of students who evaluated this course: 25") {
		t.Error("expected respondent count to render without a class list")
	}
}

func TestFormatComment(t *testing.T) {
	cases := []struct {
		g             comments.Group
		withSentiment bool
		want          string
	}{
		{comments.Group{Text: "Great class", Count: 3, Category: "Positive"}, true, "Great class (x3) - Positive"},
		{comments.Group{Text: "Boring", Count: 1, Category: "Negative"}, true, "Boring - Negative"},
		{comments.Group{Text: "Great class", Count: 2}, false, "Great class (x2)"},
	}
	for _, c := range cases {
		if got := FormatComment(c.g, c.withSentiment); got != c.want {
			t.Errorf("FormatComment(%+v, %v) = %q, want %q", c.g, c.withSentiment, got, c.want)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	got := SafeFilename("Doe, J.", `CSC101 Intro: A/B?`)
	if strings.ContainsAny(got, `\/:*?"<>|`) {
		t.Errorf("expected unsafe characters replaced, got %q", got)
	}
	if got != "Doe J_CSC101 Intro_ A_B_.html" {
		t.Errorf("unexpected filename %q", got)
	}
}

func TestFromSummary(t *testing.T) {
	row := FromSummary(ingest.SummaryRow{
		School: "Sciences", CourseTitle: "CSC101 Intro", LecturerName: "John Doe",
		ES: 4.0, ESPct: 80.0, No: 25, ClassPop: 30, RespRate: 83.3,
	})
	if row.ClassPop == nil || *row.ClassPop != 30 {
		t.Errorf("expected class population carried over, got %v", row.ClassPop)
	}
	if row.Invalid() {
		t.Error("expected valid row")
	}
}

func TestRenderWritesDocument(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(testMeta, dir)

	path, err := r.Render(testRow(), Feedback{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected document on disk: %v", err)
	}
	page := string(data)
	if !strings.Contains(page, "<html>") || !strings.Contains(page, "John Doe") {
		t.Error("expected rendered HTML page with content")
	}
}

func TestRenderAllContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(testMeta, filepath.Join(dir, "missing-subdir"))

	// Output dir does not exist: every document fails, none abort the batch.
	rows := []Row{testRow(), testRow()}
	paths, errs := r.RenderAll(rows, func(Row) Feedback { return Feedback{} })
	if len(paths) != 0 {
		t.Errorf("expected no documents, got %v", paths)
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 collected render errors, got %d", len(errs))
	}
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.html", "b.html"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("<html></html>"), 0o644); err != nil {
			t.Fatal(err)
		}
		files = append(files, path)
	}

	archivePath := filepath.Join(dir, "reports.zip")
	if err := Bundle(archivePath, files); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("expected readable archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Errorf("expected 2 archived files, got %d", len(zr.File))
	}

	for _, path := range files {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected original %s to be removed", path)
		}
	}
}
