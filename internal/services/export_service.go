package services

import (
	"context"
	"fmt"
)

type ExportStore interface {
	ReportStore
	ListAssessments(ctx context.Context) ([]*Assessment, error)
}

type ExportParams struct {
	AssessmentID string
	Format       string
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportService struct {
	store   ExportStore
	reports *ReportService
}

func NewExportService(store ExportStore) *ExportService {
	return &ExportService{store: store, reports: NewReportService(store)}
}

// ExportAssessment renders one assessment as csv (default) or xlsx.
func (s *ExportService) ExportAssessment(ctx context.Context, params ExportParams) (*ExportResult, error) {
	if params.AssessmentID == "" {
		return nil, NewInvalidError("assessment id required")
	}
	format := params.Format
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return nil, NewInvalidError("unsupported format")
	}
	r, err := s.reports.Build(ctx, params.AssessmentID)
	if err != nil {
		return nil, err
	}
	base := fmt.Sprintf("assessment_%s", r.Assessment.ID)

	switch format {
	case "xlsx":
		b, err := ExportReportXLSX(r)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: base + ".xlsx", ContentType: contentTypeXLSX, Data: b}, nil
	default:
		b, err := ExportDetailsCSV(r)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: base + ".csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	}
}

// ExportList renders a CSV summary of every assessment.
func (s *ExportService) ExportList(ctx context.Context) (*ExportResult, error) {
	list, err := s.store.ListAssessments(ctx)
	if err != nil {
		return nil, err
	}
	b, err := ExportAssessmentsCSV(list)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Filename: "assessments.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
}
