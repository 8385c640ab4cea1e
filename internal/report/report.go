// Package report renders one feedback document per (lecturer, course) row.
// The document body is assembled as Markdown and rendered to standalone
// HTML files that can be printed or bundled into an archive.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"srte/internal/aggregate"
	"srte/internal/comments"
	"srte/internal/ingest"
)

var md = goldmark.New()

const footnote = "1.00 - 1.99=Poor, 2.00 - 2.49=Fair, 2.50 - 3.49=Good, 3.50 - 4.49=Very Good, 4.50 - 5.00=Excellent"

// Meta is the header block stamped on every document.
type Meta struct {
	Institution string
	Office      string
	Survey      string
	Semester    string
	Session     string
}

// Row is the renderer's input: a finished aggregation for one (lecturer,
// course) pair. ClassPop and RespRate are nil when the run has no class
// list to join against.
type Row struct {
	School       string
	Dept         string
	CourseTitle  string
	LecturerName string
	TM, TA, CM   aggregate.Score
	IF, PTA, ES  aggregate.Score
	No           int
	ClassPop     *float64
	RespRate     *float64
}

// Feedback carries the aggregated open-ended comments for one row.
type Feedback struct {
	Likes    []comments.Group
	Dislikes []comments.Group
	// Sentiment reports whether the groups carry polarity tags.
	Sentiment bool
}

// FromSummary adapts a summary-sheet row for rendering.
func FromSummary(s ingest.SummaryRow) Row {
	classPop, respRate := s.ClassPop, s.RespRate
	return Row{
		School:       s.School,
		Dept:         s.Dept,
		CourseTitle:  s.CourseTitle,
		LecturerName: s.LecturerName,
		TM:           aggregate.Score{Raw: s.TM, Pct: s.TMPct},
		TA:           aggregate.Score{Raw: s.TA, Pct: s.TAPct},
		CM:           aggregate.Score{Raw: s.CM, Pct: s.CMPct},
		IF:           aggregate.Score{Raw: s.IF, Pct: s.IFPct},
		PTA:          aggregate.Score{Raw: s.PTA, Pct: s.PTAPct},
		ES:           aggregate.Score{Raw: s.ES, Pct: s.ESPct},
		No:           s.No,
		ClassPop:     &classPop,
		RespRate:     &respRate,
	}
}

// FromAggregate adapts a freshly aggregated row for rendering. Class
// population and response rate are unknown on this path.
func FromAggregate(a aggregate.Row) Row {
	return Row{
		School:       a.School,
		Dept:         a.Department,
		CourseTitle:  a.CourseTitle,
		LecturerName: a.LecturerName,
		TM:           a.TM,
		TA:           a.TA,
		CM:           a.CM,
		IF:           a.IF,
		PTA:          a.PTA,
		ES:           a.ES,
		No:           a.No,
	}
}

// Invalid reports whether more students evaluated the course than were
// registered for it, which voids the evaluation.
func (r *Row) Invalid() bool {
	return r.ClassPop != nil && float64(r.No) > *r.ClassPop
}

// RenderError marks one document that could not be produced. It is
// collected per document; the rest of the batch is still attempted.
type RenderError struct {
	Filename string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s: %v", e.Filename, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// BuildMarkdown assembles the fixed document layout for one row.
func BuildMarkdown(meta Meta, row Row, fb Feedback) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", meta.Institution)
	fmt.Fprintf(&b, "**%s**\n\n", meta.Office)
	fmt.Fprintf(&b, "**%s**\n\n", meta.Survey)
	fmt.Fprintf(&b, "**%s SEMESTER OF %s ACADEMIC SESSION**\n\n", meta.Semester, meta.Session)

	fmt.Fprintf(&b, "SCHOOL: %s  \n", row.School)
	fmt.Fprintf(&b, "DEPARTMENT: %s  \n", row.Dept)
	fmt.Fprintf(&b, "COURSE CODE/TITLE: %s  \n", row.CourseTitle)
	fmt.Fprintf(&b, "NAME OF LECTURER: %s\n\n", row.LecturerName)

	b.WriteString("| SUMMARY OF SCORES: | OVERALL MEAN | OVERALL RATING |\n")
	b.WriteString("|---|---|---|\n")
	dims := [5]aggregate.Score{row.TM, row.TA, row.CM, row.IF, row.PTA}
	for i, dim := range aggregate.Dimensions {
		fmt.Fprintf(&b, "| %s | %.2f | %.1f%% |\n", dim.Label, dims[i].Raw, dims[i].Pct)
	}
	fmt.Fprintf(&b, "| **Evaluation Score** | **%.2f** | **%.1f%%** |\n\n", row.ES.Raw, row.ES.Pct)

	b.WriteString("## OPEN ENDED ASSESSMENT\n\n")
	writeSection(&b, "1. Indicate three things you experienced in this course that you liked",
		"Likes", fb.Likes, fb.Sentiment, "No specific likes mentioned.")
	writeSection(&b, "2. List three things you experienced that you did not like",
		"Dislikes", fb.Dislikes, fb.Sentiment, "No specific dislikes mentioned.")

	fmt.Fprintf(&b, "**Footnote:**  \n%s\n\n", footnote)

	b.WriteString("**FOR OFFICIAL USE ONLY:**\n\n")
	fmt.Fprintf(&b, "No. of students who took this course: %s  \n", formatCount(row.ClassPop))
	fmt.Fprintf(&b, "No. of students who evaluated this course: %d  \n", row.No)
	fmt.Fprintf(&b, "Percent of students who evaluated this course: %s\n\n", formatRate(row.RespRate))

	if row.Invalid() {
		b.WriteString("> Note: This evaluation is invalid, as the number of students that rated this course is more than the number of registered students for this course.\n\n")
	}

	b.WriteString("Page 1\n")
	return b.String()
}

func writeSection(b *strings.Builder, heading, label string, groups []comments.Group, withSentiment bool, emptyNote string) {
	fmt.Fprintf(b, "**%s**\n\n", heading)

	if len(groups) == 0 {
		fmt.Fprintf(b, "- %s\n\n", emptyNote)
		return
	}

	for _, g := range groups {
		fmt.Fprintf(b, "- %s\n", FormatComment(g, withSentiment))
	}
	b.WriteString("\n")

	if withSentiment {
		if avg, category, ok := comments.SectionPolarity(groups); ok {
			fmt.Fprintf(b, "Overall Sentiment for %s: %s (Avg. Polarity: %.2f)\n\n", label, category, avg)
		}
	}
}

// FormatComment renders one comment group for display:
// "{text} (x{count}) - {category}" when the comment recurred.
func FormatComment(g comments.Group, withSentiment bool) string {
	text := g.Text
	if g.Count > 1 {
		text = fmt.Sprintf("%s (x%d)", text, g.Count)
	}
	if withSentiment && g.Category != "" {
		text += " - " + g.Category
	}
	return text
}

func formatCount(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.0f", *v)
}

func formatRate(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f%%", *v)
}

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "DejaVu Sans", sans-serif; max-width: 210mm; margin: 2em auto; }
h1, p { text-align: center; }
table { width: 100%; border-collapse: collapse; }
td, th { padding: 4px 8px; text-align: left; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`

var shellTmpl = template.Must(template.New("shell").Parse(htmlShell))

// RenderHTML converts the document markdown into a standalone HTML page.
func RenderHTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	var page bytes.Buffer
	err := shellTmpl.Execute(&page, map[string]any{
		"Title": title,
		"Body":  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return page.Bytes(), nil
}

// SafeFilename derives the document filename from the lecturer and course,
// replacing characters that are unsafe on common filesystems.
func SafeFilename(lecturer, course string) string {
	lecturer = strings.NewReplacer(",", "", ".", "").Replace(lecturer)
	name := sanitize(strings.TrimSpace(lecturer)) + "_" + sanitize(strings.TrimSpace(course))
	return name + ".html"
}

var unsafeChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

func sanitize(s string) string {
	return unsafeChars.Replace(s)
}

// Renderer writes one document per row into its output directory.
type Renderer struct {
	meta   Meta
	outDir string
}

// NewRenderer creates a renderer that writes into outDir.
func NewRenderer(meta Meta, outDir string) *Renderer {
	return &Renderer{meta: meta, outDir: outDir}
}

// Render produces the document for one row and returns its path.
func (r *Renderer) Render(row Row, fb Feedback) (string, error) {
	filename := SafeFilename(row.LecturerName, row.CourseTitle)

	markdown := BuildMarkdown(r.meta, row, fb)
	page, err := RenderHTML(row.LecturerName+" - "+row.CourseTitle, markdown)
	if err != nil {
		return "", &RenderError{Filename: filename, Err: err}
	}

	path := filepath.Join(r.outDir, filename)
	if err := os.WriteFile(path, page, 0o644); err != nil {
		return "", &RenderError{Filename: filename, Err: err}
	}
	return path, nil
}

// RenderAll renders every row, looking feedback up through fbFor. Failed
// documents are collected; the rest of the batch is still attempted.
func (r *Renderer) RenderAll(rows []Row, fbFor func(Row) Feedback) (paths []string, errs []*RenderError) {
	for _, row := range rows {
		path, err := r.Render(row, fbFor(row))
		if err != nil {
			var re *RenderError
			if !errors.As(err, &re) {
				re = &RenderError{Filename: SafeFilename(row.LecturerName, row.CourseTitle), Err: err}
			}
			log.Printf("Report failed: %v", re)
			errs = append(errs, re)
			continue
		}
		paths = append(paths, path)
	}
	return paths, errs
}
