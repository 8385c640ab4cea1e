// Package pipeline orchestrates the evaluation run: ingest, resolve,
// aggregate, classify, comments, render. Each step reports a one-line
// summary; per-row data problems are collected and surfaced after the run
// instead of aborting the batch.
package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"srte/internal/aggregate"
	"srte/internal/classify"
	"srte/internal/comments"
	"srte/internal/config"
	"srte/internal/directory"
	"srte/internal/ingest"
	"srte/internal/report"
	"srte/internal/resolve"
	"srte/internal/sentiment"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run, including the
// diagnostics the caller should present once the run completes.
type Result struct {
	Steps          []StepResult
	Unmatched      []string // lecturer names missing from the roster
	UnknownCodes   []string // course-code prefixes outside the known set
	QualityErrors  []*aggregate.QualityError
	RenderErrors   []*report.RenderError
	ReportArchive  string
	SummaryArchive string
}

// Failed reports whether any step ended with an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates the 6-step evaluation pipeline.
type Pipeline struct {
	cfg      *config.Config
	resolver *resolve.Resolver
	analyzer sentiment.Analyzer
}

// New creates a pipeline from config, loading the lecturer roster from
// the configured path. A missing or malformed roster degrades to an empty
// directory, leaving every lecturer unmatched, rather than failing the run.
func New(cfg *config.Config) *Pipeline {
	dir, err := directory.LoadFile(cfg.DirectoryPath())
	if err != nil {
		log.Printf("Lecturer roster unavailable (%v); lecturer names will not be standardized", err)
		dir = directory.Empty()
	}
	return With(cfg, dir)
}

// With creates a pipeline over an already loaded directory.
func With(cfg *config.Config, dir *directory.Directory) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		resolver: resolve.New(dir),
	}
	if cfg.Sentiment.Enabled {
		p.analyzer = sentiment.NewVaderAnalyzer()
	}
	return p
}

// Run executes the full 6-step pipeline over a raw data sheet and an
// optional comment sheet, writing school summaries and per-lecturer
// reports into outDir.
func (p *Pipeline) Run(dataPath, commentPath, outDir string) *Result {
	r := &Result{}

	// Step 1: Ingest
	log.Println("Step 1/6: Ingesting evaluation sheets...")
	records, commentRecords, step := p.runIngest(dataPath, commentPath)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 2: Resolve
	log.Println("Step 2/6: Standardizing lecturer names...")
	resolved := p.resolver.ResolveAll(records)
	r.Unmatched = resolved.Unmatched
	r.Steps = append(r.Steps, StepResult{
		Name:    "Resolve",
		Summary: fmt.Sprintf("Matched %d of %d submissions, %d unmatched names", resolved.Matched, len(records), len(r.Unmatched)),
	})

	// Step 3: Aggregate
	log.Println("Step 3/6: Aggregating dimension scores...")
	rows, qualityErrs := aggregate.Aggregate(resolved.Records)
	r.QualityErrors = qualityErrs
	r.Steps = append(r.Steps, StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("Produced %d course/lecturer rows, %d groups skipped", len(rows), len(qualityErrs)),
	})

	// Step 4: Classify
	log.Println("Step 4/6: Classifying courses into schools...")
	buckets := classify.Classify(rows, p.cfg.Buckets)
	r.UnknownCodes = classify.FindUnknownPrefixes(courseTitles(rows), p.cfg.KnownCodeSet())
	r.Steps = append(r.Steps, StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("Filled %d school buckets, %d unknown course codes", len(buckets), len(r.UnknownCodes)),
	})

	// Step 5: Comments
	log.Println("Step 5/6: Aggregating open-ended feedback...")
	feedback := p.collectFeedback(commentRecords)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Comments",
		Summary: fmt.Sprintf("Grouped feedback for %d course/lecturer pairs", len(feedback)),
	})

	// Step 6: Render
	log.Println("Step 6/6: Rendering summaries and reports...")
	step = p.runRender(rows, buckets, feedback, outDir, r)
	r.Steps = append(r.Steps, step)

	return r
}

func (p *Pipeline) runIngest(dataPath, commentPath string) ([]ingest.RawRecord, []ingest.CommentRecord, StepResult) {
	records, err := ingest.ReadRawFile(dataPath)
	if err != nil {
		return nil, nil, StepResult{Name: "Ingest", Err: err}
	}
	var commentRecords []ingest.CommentRecord
	if commentPath != "" {
		commentRecords, err = ingest.ReadCommentFile(commentPath)
		if err != nil {
			return nil, nil, StepResult{Name: "Ingest", Err: err}
		}
	}
	return records, commentRecords, StepResult{
		Name:    "Ingest",
		Summary: fmt.Sprintf("Loaded %d submissions, %d comment rows", len(records), len(commentRecords)),
	}
}

func (p *Pipeline) runRender(rows []aggregate.Row, buckets map[string][]aggregate.Row, feedback map[string]report.Feedback, outDir string, r *Result) StepResult {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return StepResult{Name: "Render", Err: fmt.Errorf("creating output directory: %w", err)}
	}

	summaryArchive, err := WriteSummaries(buckets, outDir)
	if err != nil {
		return StepResult{Name: "Render", Err: err}
	}
	r.SummaryArchive = summaryArchive

	renderer := report.NewRenderer(p.meta(), outDir)
	reportRows := make([]report.Row, len(rows))
	for i, row := range rows {
		reportRows[i] = report.FromAggregate(row)
	}
	paths, renderErrs := renderer.RenderAll(reportRows, func(row report.Row) report.Feedback {
		return feedback[feedbackKey(row.CourseTitle, row.LecturerName)]
	})
	r.RenderErrors = renderErrs

	if len(paths) > 0 {
		archive := filepath.Join(outDir, "srte_reports.zip")
		if err := report.Bundle(archive, paths); err != nil {
			return StepResult{Name: "Render", Err: err}
		}
		r.ReportArchive = archive
	}

	return StepResult{
		Name:    "Render",
		Summary: fmt.Sprintf("Rendered %d reports, %d failed", len(paths), len(renderErrs)),
	}
}

// collectFeedback groups the comment sheet by course and standardized
// lecturer name, then aggregates each pair's likes and dislikes.
func (p *Pipeline) collectFeedback(records []ingest.CommentRecord) map[string]report.Feedback {
	type pair struct{ likes, dislikes []string }

	pairs := make(map[string]*pair)
	for _, rec := range records {
		name, _, _ := p.resolver.ResolveName(rec.LecturerName)
		key := feedbackKey(rec.CourseTitle, name)
		pr, ok := pairs[key]
		if !ok {
			pr = &pair{}
			pairs[key] = pr
		}
		pr.likes = append(pr.likes, rec.Likes)
		pr.dislikes = append(pr.dislikes, rec.Dislikes)
	}

	feedback := make(map[string]report.Feedback, len(pairs))
	for key, pr := range pairs {
		feedback[key] = report.Feedback{
			Likes:     comments.Aggregate(pr.likes, p.analyzer),
			Dislikes:  comments.Aggregate(pr.dislikes, p.analyzer),
			Sentiment: p.analyzer != nil,
		}
	}
	return feedback
}

// Analyze runs ingest through classify over a raw data sheet and writes
// the per-school summaries into outDir without rendering reports.
func (p *Pipeline) Analyze(dataPath, outDir string) (*Result, error) {
	records, err := ingest.ReadRawFile(dataPath)
	if err != nil {
		return nil, err
	}

	resolved := p.resolver.ResolveAll(records)
	rows, qualityErrs := aggregate.Aggregate(resolved.Records)
	buckets := classify.Classify(rows, p.cfg.Buckets)

	r := &Result{
		Unmatched:     resolved.Unmatched,
		UnknownCodes:  classify.FindUnknownPrefixes(courseTitles(rows), p.cfg.KnownCodeSet()),
		QualityErrors: qualityErrs,
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	archive, err := WriteSummaries(buckets, outDir)
	if err != nil {
		return nil, err
	}
	r.SummaryArchive = archive

	log.Printf("Analysis complete: %d rows across %d schools", len(rows), len(buckets))
	return r, nil
}

// Report renders documents from a finished summary sheet and its comment
// sheet. A non-empty lecturer restricts the batch to that lecturer,
// matched case-insensitively against the standardized name. bundle zips
// the rendered documents into a single archive.
func (p *Pipeline) Report(summaryPath, commentPath, outDir, lecturer string, bundle bool) (*Result, error) {
	summaryRows, err := ingest.ReadSummaryFile(summaryPath)
	if err != nil {
		return nil, err
	}
	commentRecords, err := ingest.ReadCommentFile(commentPath)
	if err != nil {
		return nil, err
	}

	r := &Result{}
	standardized, unmatched := p.resolver.ResolveSummary(summaryRows)
	r.Unmatched = unmatched

	var rows []report.Row
	for _, s := range standardized {
		if lecturer != "" && !strings.EqualFold(s.LecturerName, lecturer) {
			continue
		}
		rows = append(rows, report.FromSummary(s))
	}
	if lecturer != "" && len(rows) == 0 {
		return nil, fmt.Errorf("no summary rows for lecturer %q; use the standardized name", lecturer)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	feedback := p.collectFeedback(commentRecords)
	renderer := report.NewRenderer(p.meta(), outDir)
	paths, renderErrs := renderer.RenderAll(rows, func(row report.Row) report.Feedback {
		return feedback[feedbackKey(row.CourseTitle, row.LecturerName)]
	})
	r.RenderErrors = renderErrs

	if bundle && len(paths) > 0 {
		archive := filepath.Join(outDir, "srte_reports.zip")
		if err := report.Bundle(archive, paths); err != nil {
			return nil, err
		}
		r.ReportArchive = archive
	}

	log.Printf("Report batch complete: %d rendered, %d failed", len(paths), len(renderErrs))
	return r, nil
}

// CheckCodes scans a raw data sheet for course-code prefixes that no
// school bucket claims.
func (p *Pipeline) CheckCodes(dataPath string) ([]string, error) {
	records, err := ingest.ReadRawFile(dataPath)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(records))
	for i, rec := range records {
		titles[i] = rec.CourseTitle
	}
	return classify.FindUnknownPrefixes(titles, p.cfg.KnownCodeSet()), nil
}

func (p *Pipeline) meta() report.Meta {
	return report.Meta{
		Institution: p.cfg.Institution.Name,
		Office:      p.cfg.Institution.Office,
		Survey:      p.cfg.Institution.Survey,
		Semester:    p.cfg.Report.Semester,
		Session:     p.cfg.Report.Session,
	}
}

// feedbackKey joins course title and lecturer name into a lookup key. The
// lecturer part is folded so summary rows and comment rows meet regardless
// of casing.
func feedbackKey(course, lecturer string) string {
	return course + "\x00" + strings.ToLower(lecturer)
}

func courseTitles(rows []aggregate.Row) []string {
	titles := make([]string, len(rows))
	for i, row := range rows {
		titles[i] = row.CourseTitle
	}
	return titles
}
