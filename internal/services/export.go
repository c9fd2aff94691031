package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary = "Summary"
	sheetDetails = "Details"
)

// ExportDetailsCSV renders one row per answered question.
func ExportDetailsCSV(r *Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"category", "code", "title", "score", "max_score", "option_label", "comment"})
	for _, d := range r.Details {
		rec := []string{
			d.Category,
			d.Code,
			d.Title,
			strconv.Itoa(d.Score),
			strconv.Itoa(d.MaxScore),
			d.OptionLabel,
			d.Comment,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportAssessmentsCSV renders one summary row per assessment.
// Totals and levels are left empty until an assessment is completed.
func ExportAssessmentsCSV(list []*Assessment) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"assessment_id", "company", "assessor", "status", "completion_percentage", "total_score", "maturity_level", "created_at"})
	for _, a := range list {
		rec := []string{
			a.ID,
			a.CompanyName,
			a.AssessorName,
			string(a.Status),
			strconv.Itoa(a.CompletionPercentage),
			optInt(a.TotalScore),
			optInt(a.MaturityLevel),
			a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportReportXLSX renders a workbook with a Summary sheet (headline figures
// and the category breakdown) and a Details sheet (one row per answer).
func ExportReportXLSX(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	a := r.Assessment
	rows := [][]any{
		{"Company", a.CompanyName},
		{"Assessor", a.AssessorName},
		{"Date", a.CreatedAt.UTC().Format("2006-01-02")},
		{"Status", string(a.Status)},
		{"Total score", fmt.Sprintf("%d/%d", r.TotalScore, r.MaxTotal)},
		{"Percentage", r.Percentage},
		{"Maturity level", r.MaturityLevel},
		{"Weighted score", r.WeightedScore},
		{},
		{"Category", "Weight", "Score", "Max", "Percentage", "Weighted"},
	}
	for _, c := range r.Categories {
		rows = append(rows, []any{c.Name, c.Weight, c.Achieved, c.MaxPossible, c.Percentage, c.WeightedScore})
	}
	if err := writeRows(f, sheetSummary, rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetDetails); err != nil {
		return nil, err
	}
	details := [][]any{{"Category", "Code", "Title", "Score", "Max", "Level description", "Comment"}}
	for _, d := range r.Details {
		details = append(details, []any{d.Category, d.Code, d.Title, d.Score, d.MaxScore, d.OptionLabel, d.Comment})
	}
	if err := writeRows(f, sheetDetails, details); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := row
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	return nil
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
