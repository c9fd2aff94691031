package services

import (
	"context"
	"math"
)

// ReportStore abstracts the reads needed to render an assessment.
type ReportStore interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
	ListResults(ctx context.Context, assessmentID string) ([]AssessmentResult, error)
}

type CategoryReport struct {
	CategoryID    int64   `json:"category_id"`
	Name          string  `json:"name"`
	Weight        float64 `json:"weight"`
	Achieved      int     `json:"achieved"`
	MaxPossible   int     `json:"max_possible"`
	Percentage    float64 `json:"percentage"`
	WeightedScore float64 `json:"weighted_score"`
}

type DetailRow struct {
	QuestionID  int64  `json:"question_id"`
	Category    string `json:"category"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Score       int    `json:"score"`
	MaxScore    int    `json:"max_score"`
	OptionLabel string `json:"option_label"`
	Comment     string `json:"comment,omitempty"`
}

// Report is the rendered view of one assessment. For drafts the totals are a
// preview computed from the answers saved so far.
type Report struct {
	Assessment    *Assessment      `json:"assessment"`
	Preview       bool             `json:"preview"`
	TotalScore    int              `json:"total_score"`
	MaxTotal      int              `json:"max_total"`
	Percentage    float64          `json:"percentage"`
	MaturityLevel int              `json:"maturity_level"`
	WeightedScore float64          `json:"weighted_score"`
	Answered      int              `json:"answered"`
	QuestionCount int              `json:"question_count"`
	Categories    []CategoryReport `json:"categories"`
	Details       []DetailRow      `json:"details"`
}

// ChartData feeds the category bar/radar chart.
type ChartData struct {
	Categories  []string  `json:"categories"`
	Scores      []int     `json:"scores"`
	MaxScores   []int     `json:"maxScores"`
	Percentages []float64 `json:"percentages"`
}

type ReportService struct {
	store ReportStore
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

func (s *ReportService) Build(ctx context.Context, assessmentID string) (*Report, error) {
	a, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	cat, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.store.ListResults(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return BuildReport(a, cat, results), nil
}

func (s *ReportService) Chart(ctx context.Context, assessmentID string) (*ChartData, error) {
	r, err := s.Build(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return r.Chart(), nil
}

// BuildReport assembles a report from already loaded data.
func BuildReport(a *Assessment, cat *Catalog, results []AssessmentResult) *Report {
	scores := ResultScores(results)
	comments := make(map[int64]string, len(results))
	for _, r := range results {
		comments[r.QuestionID] = r.Comment
	}

	r := &Report{
		Assessment:    a,
		Preview:       a.Status != StatusCompleted,
		MaxTotal:      cat.MaxTotal(),
		QuestionCount: cat.QuestionCount(),
		Categories:    []CategoryReport{},
		Details:       []DetailRow{},
	}
	if a.TotalScore != nil && a.MaturityLevel != nil {
		r.TotalScore = *a.TotalScore
		r.MaturityLevel = *a.MaturityLevel
	} else {
		r.TotalScore = ScoreTotal(scores)
		r.MaturityLevel = MaturityLevel(r.TotalScore, r.MaxTotal)
	}
	if r.MaxTotal > 0 {
		r.Percentage = round1(float64(r.TotalScore) / float64(r.MaxTotal) * 100)
	}

	var weighted float64
	for _, cs := range CategoryBreakdown(scores, cat) {
		ws := WeightedCategoryScore(cs.Category.Weight, cs.Achieved, cs.MaxPossible)
		weighted += ws
		cr := CategoryReport{
			CategoryID:    cs.Category.ID,
			Name:          cs.Category.Name,
			Weight:        cs.Category.Weight,
			Achieved:      cs.Achieved,
			MaxPossible:   cs.MaxPossible,
			WeightedScore: ws,
		}
		if cs.MaxPossible > 0 {
			cr.Percentage = round1(float64(cs.Achieved) / float64(cs.MaxPossible) * 100)
		}
		r.Categories = append(r.Categories, cr)
	}
	r.WeightedScore = round1(weighted * 100)

	for _, q := range cat.Questions() {
		score, ok := scores[q.ID]
		if !ok {
			continue
		}
		c, _ := cat.Category(q.CategoryID)
		r.Details = append(r.Details, DetailRow{
			QuestionID:  q.ID,
			Category:    c.Name,
			Code:        q.Code,
			Title:       q.Title,
			Score:       score,
			MaxScore:    maxScoreOf(q),
			OptionLabel: cat.OptionLabel(q.ID, score),
			Comment:     comments[q.ID],
		})
		r.Answered++
	}
	return r
}

// Chart lists only categories with at least one answered question.
func (r *Report) Chart() *ChartData {
	out := &ChartData{Categories: []string{}, Scores: []int{}, MaxScores: []int{}, Percentages: []float64{}}
	for _, c := range r.Categories {
		if c.MaxPossible == 0 {
			continue
		}
		out.Categories = append(out.Categories, c.Name)
		out.Scores = append(out.Scores, c.Achieved)
		out.MaxScores = append(out.MaxScores, c.MaxPossible)
		out.Percentages = append(out.Percentages, c.Percentage)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
