package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// CatalogStore abstracts persistence operations required by CatalogService.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
	// EditCategories loads the catalog and writes the categories fn returns
	// in one transaction; nothing is written when fn fails.
	EditCategories(ctx context.Context, fn func(cat *Catalog) ([]Category, error)) error
	InsertQuestion(ctx context.Context, q *Question, options []Option) error
	UpdateQuestion(ctx context.Context, q Question, options []Option) error
	DeleteQuestion(ctx context.Context, id int64) error
	SetQuestionPositions(ctx context.Context, positions map[int64]int) error
}

type CategoryUpdate struct {
	Name        string
	Description string
	Weight      float64
}

type QuestionInput struct {
	CategoryID  int64
	Code        string
	Title       string
	Description string
	// Options holds labels for scores 1..n; empty entries fall back to a default.
	Options []string
}

// PositionChange records a question moved by ReorderByCode.
type PositionChange struct {
	QuestionID int64  `json:"question_id"`
	Code       string `json:"code"`
	From       int    `json:"from"`
	To         int    `json:"to"`
}

type CatalogService struct {
	store CatalogStore
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) Catalog(ctx context.Context) (*Catalog, error) {
	return s.store.LoadCatalog(ctx)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, upd CategoryUpdate) (*Category, error) {
	name := strings.TrimSpace(upd.Name)
	if name == "" {
		return nil, NewInvalidError("name required")
	}
	if math.IsNaN(upd.Weight) || upd.Weight < 0 || upd.Weight > 1 {
		return nil, NewInvalidError("weight must be within [0, 1]")
	}
	var updated Category
	err := s.store.EditCategories(ctx, func(cat *Catalog) ([]Category, error) {
		c, ok := cat.Category(id)
		if !ok {
			return nil, NewNotFoundError("category not found")
		}
		c.Name = name
		c.Description = strings.TrimSpace(upd.Description)
		c.Weight = upd.Weight
		updated = c
		return []Category{c}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetWeights updates several category weights at once; the resulting catalog
// weights must still sum to 1.
func (s *CatalogService) SetWeights(ctx context.Context, weights map[int64]float64) error {
	for _, w := range weights {
		if math.IsNaN(w) || w < 0 || w > 1 {
			return NewInvalidError("weight must be within [0, 1]")
		}
	}
	return s.store.EditCategories(ctx, func(cat *Catalog) ([]Category, error) {
		for id := range weights {
			if _, ok := cat.Category(id); !ok {
				return nil, NewNotFoundError(fmt.Sprintf("category %d not found", id))
			}
		}
		var sum float64
		changed := make([]Category, 0, len(weights))
		for _, c := range cat.Categories() {
			if w, ok := weights[c.ID]; ok {
				c.Weight = w
				changed = append(changed, c)
			}
			sum += c.Weight
		}
		if math.Abs(sum-1) > weightTolerance {
			return nil, NewInvalidError(fmt.Sprintf("category weights sum to %.4f, want 1", sum))
		}
		return changed, nil
	})
}

// AddQuestion appends a question to the end of its category with one option per score level.
func (s *CatalogService) AddQuestion(ctx context.Context, in QuestionInput) (*Question, error) {
	cat, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := cat.Category(in.CategoryID); !ok {
		return nil, NewNotFoundError("category not found")
	}
	if err := validateQuestionInput(in); err != nil {
		return nil, err
	}
	pos := 0
	for _, q := range cat.QuestionsIn(in.CategoryID) {
		if q.Position > pos {
			pos = q.Position
		}
	}
	q := &Question{
		CategoryID:  in.CategoryID,
		Code:        strings.TrimSpace(in.Code),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		MaxScore:    DefaultMaxScore,
		Position:    pos + 1,
	}
	if err := s.store.InsertQuestion(ctx, q, buildOptions(0, DefaultMaxScore, in.Options, nil)); err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateQuestion edits a question's text and option labels. Empty labels keep
// the label already stored for that score.
func (s *CatalogService) UpdateQuestion(ctx context.Context, id int64, in QuestionInput) (*Question, error) {
	cat, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	q, ok := cat.Question(id)
	if !ok {
		return nil, NewNotFoundError("question not found")
	}
	if err := validateQuestionInput(in); err != nil {
		return nil, err
	}
	q.Code = strings.TrimSpace(in.Code)
	q.Title = strings.TrimSpace(in.Title)
	q.Description = strings.TrimSpace(in.Description)
	opts := buildOptions(q.ID, maxScoreOf(q), in.Options, cat.Options(q.ID))
	if err := s.store.UpdateQuestion(ctx, q, opts); err != nil {
		return nil, err
	}
	return &q, nil
}

// DeleteQuestion removes a question together with its options and any stored results.
func (s *CatalogService) DeleteQuestion(ctx context.Context, id int64) error {
	cat, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if _, ok := cat.Question(id); !ok {
		return NewNotFoundError("question not found")
	}
	return s.store.DeleteQuestion(ctx, id)
}

// ReorderByCode renumbers positions 1..n within each category following the
// dotted question codes, and reports the questions that moved.
func (s *CatalogService) ReorderByCode(ctx context.Context) ([]PositionChange, error) {
	cat, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	var changes []PositionChange
	positions := map[int64]int{}
	for _, c := range cat.Categories() {
		qs := cat.QuestionsIn(c.ID)
		sort.SliceStable(qs, func(i, j int) bool { return CompareCodes(qs[i].Code, qs[j].Code) < 0 })
		for i, q := range qs {
			if q.Position == i+1 {
				continue
			}
			positions[q.ID] = i + 1
			changes = append(changes, PositionChange{QuestionID: q.ID, Code: q.Code, From: q.Position, To: i + 1})
		}
	}
	if len(positions) == 0 {
		return nil, nil
	}
	if err := s.store.SetQuestionPositions(ctx, positions); err != nil {
		return nil, err
	}
	return changes, nil
}

// CompareCodes orders dotted codes segment by segment, numerically where both
// segments are integers ("1.1.2" < "1.1.10").
func CompareCodes(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

func validateQuestionInput(in QuestionInput) error {
	if strings.TrimSpace(in.Code) == "" {
		return NewInvalidError("code required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return NewInvalidError("title required")
	}
	if len(in.Options) > DefaultMaxScore {
		return NewInvalidError(fmt.Sprintf("at most %d option labels allowed", DefaultMaxScore))
	}
	return nil
}

func buildOptions(questionID int64, maxScore int, labels []string, existing []Option) []Option {
	prev := map[int]string{}
	for _, o := range existing {
		prev[o.Score] = o.Label
	}
	out := make([]Option, 0, maxScore)
	for score := 1; score <= maxScore; score++ {
		label := ""
		if score-1 < len(labels) {
			label = strings.TrimSpace(labels[score-1])
		}
		if label == "" {
			label = prev[score]
		}
		if label == "" {
			label = fmt.Sprintf("Level %d", score)
		}
		out = append(out, Option{QuestionID: questionID, Score: score, Label: label})
	}
	return out
}
