package services

import "time"

// Status is the lifecycle state of an assessment.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
)

// HistoryAction names a lifecycle transition recorded in the history log.
type HistoryAction string

const (
	ActionCreated    HistoryAction = "created"
	ActionSavedDraft HistoryAction = "saved_draft"
	ActionCompleted  HistoryAction = "completed"
)

type Category struct {
	ID          int64   `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Position    int     `json:"position" yaml:"position"`
}

type Question struct {
	ID          int64  `json:"id" yaml:"id"`
	CategoryID  int64  `json:"category_id" yaml:"category_id"`
	Code        string `json:"code" yaml:"code"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description"`
	MaxScore    int    `json:"max_score" yaml:"max_score"`
	Position    int    `json:"position" yaml:"position"`
}

// Option is the label shown for one score level of a question.
type Option struct {
	QuestionID int64  `json:"question_id"`
	Score      int    `json:"score"`
	Label      string `json:"label"`
}

type Company struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Industry        string    `json:"industry,omitempty"`
	Size            string    `json:"size,omitempty"`
	ContactPerson   string    `json:"contact_person,omitempty"`
	ContactEmail    string    `json:"contact_email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	AssessmentCount int       `json:"assessment_count"`
}

type Assessment struct {
	ID                   string    `json:"id"`
	CompanyID            string    `json:"company_id"`
	CompanyName          string    `json:"company_name,omitempty"`
	AssessorName         string    `json:"assessor_name"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	Status               Status    `json:"status"`
	CompletionPercentage int       `json:"completion_percentage"`
	TotalScore           *int      `json:"total_score"`
	MaturityLevel        *int      `json:"maturity_level"`
	Notes                string    `json:"notes,omitempty"`
}

// AssessmentResult is the stored answer for one question of an assessment.
type AssessmentResult struct {
	AssessmentID string `json:"assessment_id"`
	QuestionID   int64  `json:"question_id"`
	Score        int    `json:"score"`
	Comment      string `json:"comment,omitempty"`
}

type HistoryEntry struct {
	ID           int64         `json:"id"`
	AssessmentID string        `json:"assessment_id"`
	Action       HistoryAction `json:"action"`
	At           time.Time     `json:"at"`
	Actor        string        `json:"actor"`
	Answered     int           `json:"answered"`
	Total        int           `json:"total"`
	Note         string        `json:"note,omitempty"`
}

// Answer is one entry of an inbound answer set.
type Answer struct {
	QuestionID int64  `json:"question_id"`
	Score      int    `json:"score"`
	Comment    string `json:"comment,omitempty"`
}

type User struct {
	ID        string
	Email     string
	Name      string
	PassHash  []byte `json:"-"`
	CreatedAt time.Time
}
