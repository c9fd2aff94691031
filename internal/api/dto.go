package api

import "github.com/soaringjerry/Readiness/internal/services"

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type companyRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Industry      string `json:"industry" validate:"max=100"`
	Size          string `json:"size" validate:"max=50"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	ContactEmail  string `json:"contact_email" validate:"omitempty,email"`
}

// Score ranges depend on the catalog and are checked by the service.
type answerDTO struct {
	QuestionID int64  `json:"question_id" validate:"required,gt=0"`
	Score      int    `json:"score"`
	Comment    string `json:"comment" validate:"max=2000"`
}

type createAssessmentRequest struct {
	CompanyID    string `json:"company_id" validate:"required"`
	AssessorName string `json:"assessor_name" validate:"max=100"`
	Notes        string `json:"notes" validate:"max=5000"`
}

type saveDraftRequest struct {
	Answers []answerDTO `json:"answers" validate:"dive"`
	Notes   *string     `json:"notes" validate:"omitempty,max=5000"`
}

type finalizeRequest struct {
	CompanyID    string      `json:"company_id"`
	AssessorName string      `json:"assessor_name" validate:"max=100"`
	Notes        *string     `json:"notes" validate:"omitempty,max=5000"`
	Answers      []answerDTO `json:"answers" validate:"dive"`
}

type submitRequest struct {
	CompanyID    string      `json:"company_id" validate:"required"`
	AssessorName string      `json:"assessor_name" validate:"max=100"`
	Notes        *string     `json:"notes" validate:"omitempty,max=5000"`
	Answers      []answerDTO `json:"answers" validate:"dive"`
}

type categoryRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Weight      *float64 `json:"weight" validate:"required,gte=0,lte=1"`
}

type weightDTO struct {
	CategoryID int64   `json:"category_id" validate:"required,gt=0"`
	Weight     float64 `json:"weight" validate:"gte=0,lte=1"`
}

type weightsRequest struct {
	Weights []weightDTO `json:"weights" validate:"required,min=1,dive"`
}

type questionRequest struct {
	CategoryID  int64    `json:"category_id" validate:"omitempty,gt=0"`
	Code        string   `json:"code" validate:"required,max=20"`
	Title       string   `json:"title" validate:"required,max=300"`
	Description string   `json:"description" validate:"max=2000"`
	Options     []string `json:"options" validate:"max=5,dive,max=300"`
}

func toAnswers(in []answerDTO) []services.Answer {
	out := make([]services.Answer, 0, len(in))
	for _, a := range in {
		out = append(out, services.Answer{QuestionID: a.QuestionID, Score: a.Score, Comment: a.Comment})
	}
	return out
}

type catalogView struct {
	Categories    []categoryView `json:"categories"`
	QuestionCount int            `json:"question_count"`
	MaxTotal      int            `json:"max_total"`
}

type categoryView struct {
	services.Category
	Questions []questionView `json:"questions"`
}

type questionView struct {
	services.Question
	Options []services.Option `json:"options"`
}

func newCatalogView(cat *services.Catalog) catalogView {
	v := catalogView{QuestionCount: cat.QuestionCount(), MaxTotal: cat.MaxTotal(), Categories: []categoryView{}}
	for _, c := range cat.Categories() {
		cv := categoryView{Category: c, Questions: []questionView{}}
		for _, q := range cat.QuestionsIn(c.ID) {
			cv.Questions = append(cv.Questions, questionView{Question: q, Options: cat.Options(q.ID)})
		}
		v.Categories = append(v.Categories, cv)
	}
	return v
}
