// Package ingest reads the SRTE spreadsheet exports into memory. Schemas
// are validated at this boundary so misaligned files fail loudly instead of
// producing silently shifted data.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ItemCount is the number of numeric rating items per submission
// (TM1..TM7, TA8..TA12, CM13..CM16, IF17..IF21, PTA22..PTA23).
const ItemCount = 23

// RawHeader is the expected column layout of the raw data sheet after the
// trailing two export columns are discarded.
var RawHeader = []string{
	"Course Title", "Lecturer Name",
	"TM1", "TM2", "TM3", "TM4", "TM5", "TM6", "TM7",
	"TA8", "TA9", "TA10", "TA11", "TA12",
	"CM13", "CM14", "CM15", "CM16",
	"IF17", "IF18", "IF19", "IF20", "IF21",
	"PTA22", "PTA23",
}

// CommentHeader is the expected column layout of the comment sheet after
// the rating columns are discarded.
var CommentHeader = []string{"Course Title", "Lecturer Name", "Course likes", "Course dislikes"}

// SchemaError reports an input file that does not match its schema
// descriptor. It is a configuration problem: the run aborts before any
// aggregation happens.
type SchemaError struct {
	Sheet  string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s sheet: %s", e.Sheet, e.Detail)
}

// RawRecord is one evaluation submission. Items holds the 23 rating values
// in sheet order; unparseable or blank cells are NaN and are skipped during
// aggregation.
type RawRecord struct {
	CourseTitle  string
	LecturerName string
	Items        [ItemCount]float64
}

// CommentRecord is one row of the comment sheet.
type CommentRecord struct {
	CourseTitle  string
	LecturerName string
	Likes        string
	Dislikes     string
}

// SummaryRow is one row of the summary sheet: a finished aggregation
// joined with class population and response rate, ready for rendering.
type SummaryRow struct {
	School       string
	Dept         string
	CourseTitle  string
	LecturerName string
	TM, TMPct    float64
	TA, TAPct    float64
	CM, CMPct    float64
	IF, IFPct    float64
	PTA, PTAPct  float64
	ES, ESPct    float64
	No           int
	ClassPop     float64
	RespRate     float64
}

// summaryColumns are the header-addressed columns the summary sheet must
// carry. Order in the file does not matter.
var summaryColumns = []string{
	"School", "Dept", "Course Title", "Lecturer Name",
	"TM Overall", "TM %", "TA Overall", "TA %", "CM Overall", "CM %",
	"IF Overall", "IF %", "PTA Overall", "PTA %", "ES Overall", "ES %",
	"No", "Class Pop", "Resp Rate",
}

// ReadRawFile reads the raw data sheet from a CSV file.
func ReadRawFile(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raw data: %w", err)
	}
	defer f.Close()
	return ReadRaw(f)
}

// ReadRaw reads the raw data sheet. The export carries two trailing
// bookkeeping columns which are dropped before the positional header is
// checked against RawHeader.
func ReadRaw(r io.Reader) ([]RawRecord, error) {
	rows, err := readTable(r, "raw data")
	if err != nil {
		return nil, err
	}

	width := len(rows[0]) - 2
	if width != len(RawHeader) {
		return nil, &SchemaError{
			Sheet:  "raw data",
			Detail: fmt.Sprintf("expected %d columns after dropping the trailing 2, got %d", len(RawHeader), width),
		}
	}

	var records []RawRecord
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec := RawRecord{
			CourseTitle:  strings.TrimSpace(cell(row, 0)),
			LecturerName: cell(row, 1),
		}
		for i := 0; i < ItemCount; i++ {
			rec.Items[i] = parseScore(cell(row, i+2))
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCommentFile reads the comment sheet from a CSV file.
func ReadCommentFile(path string) ([]CommentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening comment data: %w", err)
	}
	defer f.Close()
	return ReadComments(f)
}

// ReadComments reads the comment sheet. The export interleaves the rating
// columns between the identity pair and the two free-text columns; those
// are dropped (positions 2 through 24) before the width is checked.
func ReadComments(r io.Reader) ([]CommentRecord, error) {
	rows, err := readTable(r, "comment")
	if err != nil {
		return nil, err
	}

	width := len(rows[0])
	if width > len(CommentHeader) {
		width -= 23 // positions 2..24
	}
	if width != len(CommentHeader) {
		return nil, &SchemaError{
			Sheet:  "comment",
			Detail: fmt.Sprintf("expected %d columns, got %d", len(CommentHeader), width),
		}
	}

	likesCol, dislikesCol := 2, 3
	if len(rows[0]) > len(CommentHeader) {
		likesCol, dislikesCol = 25, 26
	}

	var records []CommentRecord
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		records = append(records, CommentRecord{
			CourseTitle:  strings.TrimSpace(cell(row, 0)),
			LecturerName: cell(row, 1),
			Likes:        cell(row, likesCol),
			Dislikes:     cell(row, dislikesCol),
		})
	}
	return records, nil
}

// ReadSummaryFile reads the summary sheet from a CSV file.
func ReadSummaryFile(path string) ([]SummaryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary data: %w", err)
	}
	defer f.Close()
	return ReadSummary(f)
}

// ReadSummary reads the summary sheet. Columns are located by header name;
// rows with any empty required cell are dropped wholesale.
func ReadSummary(r io.Reader) ([]SummaryRow, error) {
	rows, err := readTable(r, "summary")
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int)
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range summaryColumns {
		if _, ok := cols[required]; !ok {
			return nil, &SchemaError{
				Sheet:  "summary",
				Detail: fmt.Sprintf("missing required column %q", required),
			}
		}
	}

	var out []SummaryRow
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		complete := true
		for _, name := range summaryColumns {
			if strings.TrimSpace(cell(row, cols[name])) == "" {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}

		get := func(name string) string { return strings.TrimSpace(cell(row, cols[name])) }
		num := func(name string) float64 { return parseScore(get(name)) }

		no, _ := strconv.Atoi(get("No"))
		out = append(out, SummaryRow{
			School:       get("School"),
			Dept:         get("Dept"),
			CourseTitle:  get("Course Title"),
			LecturerName: get("Lecturer Name"),
			TM:           num("TM Overall"),
			TMPct:        num("TM %"),
			TA:           num("TA Overall"),
			TAPct:        num("TA %"),
			CM:           num("CM Overall"),
			CMPct:        num("CM %"),
			IF:           num("IF Overall"),
			IFPct:        num("IF %"),
			PTA:          num("PTA Overall"),
			PTAPct:       num("PTA %"),
			ES:           num("ES Overall"),
			ESPct:        num("ES %"),
			No:           no,
			ClassPop:     num("Class Pop"),
			RespRate:     num("Resp Rate"),
		})
	}
	return out, nil
}

func readTable(r io.Reader, sheet string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s sheet: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Sheet: sheet, Detail: "file is empty"}
	}
	return rows, nil
}

func parseScore(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
