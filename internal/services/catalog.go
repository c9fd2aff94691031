package services

import (
	"fmt"
	"math"
	"sort"
)

// weightTolerance bounds the drift allowed when category weights are summed.
const weightTolerance = 1e-6

// Catalog is a read-only snapshot of categories, questions and options in
// display order. Question counts and score maxima are always derived from it.
type Catalog struct {
	categories []Category
	questions  []Question
	byID       map[int64]int
	options    map[int64][]Option
}

// NewCatalog orders categories by position and questions by their category's
// position then their own, breaking ties by id.
func NewCatalog(categories []Category, questions []Question, options []Option) *Catalog {
	cats := append([]Category(nil), categories...)
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Position == cats[j].Position {
			return cats[i].ID < cats[j].ID
		}
		return cats[i].Position < cats[j].Position
	})
	catRank := make(map[int64]int, len(cats))
	for i, c := range cats {
		catRank[c.ID] = i
	}
	qs := append([]Question(nil), questions...)
	sort.SliceStable(qs, func(i, j int) bool {
		ri, rj := catRank[qs[i].CategoryID], catRank[qs[j].CategoryID]
		if ri != rj {
			return ri < rj
		}
		if qs[i].Position != qs[j].Position {
			return qs[i].Position < qs[j].Position
		}
		return qs[i].ID < qs[j].ID
	})
	byID := make(map[int64]int, len(qs))
	for i, q := range qs {
		byID[q.ID] = i
	}
	opts := map[int64][]Option{}
	for _, o := range options {
		opts[o.QuestionID] = append(opts[o.QuestionID], o)
	}
	for id := range opts {
		list := opts[id]
		sort.Slice(list, func(i, j int) bool { return list[i].Score < list[j].Score })
	}
	return &Catalog{categories: cats, questions: qs, byID: byID, options: opts}
}

func (c *Catalog) Categories() []Category { return append([]Category(nil), c.categories...) }

func (c *Catalog) Questions() []Question { return append([]Question(nil), c.questions...) }

func (c *Catalog) Question(id int64) (Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

func (c *Catalog) Category(id int64) (Category, bool) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// QuestionsIn returns the questions of one category in display order.
func (c *Catalog) QuestionsIn(categoryID int64) []Question {
	var out []Question
	for _, q := range c.questions {
		if q.CategoryID == categoryID {
			out = append(out, q)
		}
	}
	return out
}

func (c *Catalog) Options(questionID int64) []Option {
	return append([]Option(nil), c.options[questionID]...)
}

// OptionLabel returns the label for a question's score level, or "" if none is defined.
func (c *Catalog) OptionLabel(questionID int64, score int) string {
	for _, o := range c.options[questionID] {
		if o.Score == score {
			return o.Label
		}
	}
	return ""
}

func (c *Catalog) QuestionCount() int { return len(c.questions) }

// MaxTotal is the highest achievable total score across the whole catalog.
func (c *Catalog) MaxTotal() int {
	total := 0
	for _, q := range c.questions {
		total += maxScoreOf(q)
	}
	return total
}

// Validate checks catalog integrity: category weights sum to 1, every question
// belongs to a known category and has exactly one option per score level.
func (c *Catalog) Validate() error {
	var sum float64
	cats := make(map[int64]struct{}, len(c.categories))
	for _, cat := range c.categories {
		if cat.Weight < 0 {
			return NewInvalidError(fmt.Sprintf("category %d has negative weight", cat.ID))
		}
		sum += cat.Weight
		cats[cat.ID] = struct{}{}
	}
	if len(c.categories) > 0 && math.Abs(sum-1) > weightTolerance {
		return NewInvalidError(fmt.Sprintf("category weights sum to %.4f, want 1", sum))
	}
	for _, q := range c.questions {
		if _, ok := cats[q.CategoryID]; !ok {
			return NewInvalidError(fmt.Sprintf("question %s references unknown category %d", q.Code, q.CategoryID))
		}
		top := maxScoreOf(q)
		opts := c.options[q.ID]
		if len(opts) != top {
			return NewInvalidError(fmt.Sprintf("question %s has %d options, want %d", q.Code, len(opts), top))
		}
		for i, o := range opts {
			if o.Score != i+1 {
				return NewInvalidError(fmt.Sprintf("question %s is missing option for score %d", q.Code, i+1))
			}
		}
	}
	return nil
}

// ValidateAnswers rejects answers for unknown questions, scores outside
// [1, max_score] and repeated questions.
func (c *Catalog) ValidateAnswers(answers []Answer) error {
	seen := make(map[int64]struct{}, len(answers))
	for _, a := range answers {
		q, ok := c.Question(a.QuestionID)
		if !ok {
			return NewUnknownQuestionError(a.QuestionID)
		}
		if a.Score < 1 || a.Score > maxScoreOf(q) {
			return NewInvalidError(fmt.Sprintf("score %d for question %s is outside [1, %d]", a.Score, q.Code, maxScoreOf(q)))
		}
		if _, dup := seen[a.QuestionID]; dup {
			return NewInvalidError(fmt.Sprintf("question %s answered more than once", q.Code))
		}
		seen[a.QuestionID] = struct{}{}
	}
	return nil
}

func maxScoreOf(q Question) int {
	if q.MaxScore <= 0 {
		return DefaultMaxScore
	}
	return q.MaxScore
}
