package services

import "context"

// AnalyticsStore abstracts the reads needed for cross-assessment statistics.
type AnalyticsStore interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
	ListAssessments(ctx context.Context) ([]*Assessment, error)
	ListResults(ctx context.Context, assessmentID string) ([]AssessmentResult, error)
}

type QuestionStats struct {
	QuestionID int64   `json:"question_id"`
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Histogram  []int   `json:"histogram"`
	Total      int     `json:"total"`
	Mean       float64 `json:"mean"`
}

type CategoryStats struct {
	CategoryID int64   `json:"category_id"`
	Name       string  `json:"name"`
	Alpha      float64 `json:"alpha"`
	N          int     `json:"n"`
}

type AnalyticsSummary struct {
	Completed int `json:"completed"`
	// LevelDistribution[i] counts completed assessments at maturity level i+1.
	LevelDistribution []int           `json:"level_distribution"`
	Questions         []QuestionStats `json:"questions"`
	Categories        []CategoryStats `json:"categories"`
}

type AnalyticsService struct {
	store AnalyticsStore
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Summary aggregates completed assessments only; drafts are ignored.
func (s *AnalyticsService) Summary(ctx context.Context) (*AnalyticsSummary, error) {
	cat, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListAssessments(ctx)
	if err != nil {
		return nil, err
	}
	var scored []map[int64]int
	levels := make([]int, len(maturityThresholds)+1)
	for _, a := range list {
		if a.Status != StatusCompleted {
			continue
		}
		rs, err := s.store.ListResults(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ResultScores(rs))
		if a.MaturityLevel != nil && *a.MaturityLevel >= 1 && *a.MaturityLevel <= len(levels) {
			levels[*a.MaturityLevel-1]++
		}
	}
	return &AnalyticsSummary{
		Completed:         len(scored),
		LevelDistribution: levels,
		Questions:         buildQuestionStats(cat, scored),
		Categories:        buildCategoryStats(cat, scored),
	}, nil
}

func buildQuestionStats(cat *Catalog, scored []map[int64]int) []QuestionStats {
	qs := cat.Questions()
	out := make([]QuestionStats, 0, len(qs))
	for _, q := range qs {
		st := QuestionStats{QuestionID: q.ID, Code: q.Code, Title: q.Title, Histogram: make([]int, maxScoreOf(q))}
		sum := 0
		for _, m := range scored {
			v, ok := m[q.ID]
			if !ok || v < 1 || v > len(st.Histogram) {
				continue
			}
			st.Histogram[v-1]++
			st.Total++
			sum += v
		}
		if st.Total > 0 {
			st.Mean = round1(float64(sum) / float64(st.Total))
		}
		out = append(out, st)
	}
	return out
}

// buildCategoryStats computes Cronbach's alpha per category over the
// assessments that answered every question in that category.
func buildCategoryStats(cat *Catalog, scored []map[int64]int) []CategoryStats {
	cats := cat.Categories()
	out := make([]CategoryStats, 0, len(cats))
	for _, c := range cats {
		qs := cat.QuestionsIn(c.ID)
		var matrix [][]float64
		for _, m := range scored {
			row := make([]float64, 0, len(qs))
			for _, q := range qs {
				v, ok := m[q.ID]
				if !ok {
					row = nil
					break
				}
				row = append(row, float64(v))
			}
			if row != nil {
				matrix = append(matrix, row)
			}
		}
		out = append(out, CategoryStats{CategoryID: c.ID, Name: c.Name, Alpha: CronbachAlpha(matrix), N: len(matrix)})
	}
	return out
}
