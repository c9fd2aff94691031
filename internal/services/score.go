package services

// DefaultMaxScore is the top score level of a question when none is stored.
const DefaultMaxScore = 5

// Percentage thresholds (lower bounds, inclusive) for maturity levels 2..5.
var maturityThresholds = [...]int{40, 60, 80, 91}

// CategoryScore is one category's subtotal over the answered questions.
type CategoryScore struct {
	Category    Category `json:"category"`
	Achieved    int      `json:"achieved"`
	MaxPossible int      `json:"max_possible"`
}

// ScoreTotal sums the scores. No check is made on which questions are present,
// so a partial set yields a partial total.
func ScoreTotal(results map[int64]int) int {
	total := 0
	for _, v := range results {
		total += v
	}
	return total
}

// CategoryBreakdown returns a subtotal per category in catalog order. Only
// questions present in results count, for both achieved and max possible, so
// a draft reports subtotals scaled to what has been answered so far.
// Results for questions missing from the catalog are ignored.
func CategoryBreakdown(results map[int64]int, catalog *Catalog) []CategoryScore {
	cats := catalog.Categories()
	out := make([]CategoryScore, 0, len(cats))
	for _, cat := range cats {
		cs := CategoryScore{Category: cat}
		for _, q := range catalog.QuestionsIn(cat.ID) {
			score, ok := results[q.ID]
			if !ok {
				continue
			}
			cs.Achieved += score
			cs.MaxPossible += maxScoreOf(q)
		}
		out = append(out, cs)
	}
	return out
}

// MaturityLevel classifies total/maxTotal as a percentage:
// <40 → 1, <60 → 2, <80 → 3, <91 → 4, otherwise 5.
// Comparisons are done in integers so boundary values are exact.
func MaturityLevel(total, maxTotal int) int {
	if maxTotal <= 0 {
		return 1
	}
	level := 1
	for _, th := range maturityThresholds {
		if total*100 < th*maxTotal {
			break
		}
		level++
	}
	return level
}

// WeightedCategoryScore is weight × achieved/maxPossible, or 0 when nothing
// in the category was answered.
func WeightedCategoryScore(weight float64, achieved, maxPossible int) float64 {
	if maxPossible == 0 {
		return 0
	}
	return weight * float64(achieved) / float64(maxPossible)
}

// ResultScores converts stored results into the question → score mapping used by the engine.
func ResultScores(results []AssessmentResult) map[int64]int {
	out := make(map[int64]int, len(results))
	for _, r := range results {
		out[r.QuestionID] = r.Score
	}
	return out
}

// CompletionPercentage is floor(100 × answered / total), clamped to [0, 100].
func CompletionPercentage(answered, total int) int {
	if total <= 0 || answered <= 0 {
		return 0
	}
	if answered >= total {
		return 100
	}
	return answered * 100 / total
}
