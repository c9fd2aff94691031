package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssessmentTx is the view of the store available inside one lifecycle
// transaction. Getters return (nil, nil) when the record does not exist.
type AssessmentTx interface {
	Catalog() (*Catalog, error)
	GetCompany(id string) (*Company, error)
	GetAssessment(id string) (*Assessment, error)
	InsertAssessment(a *Assessment) error
	UpdateAssessment(a *Assessment) error
	DeleteAssessment(id string) error
	ReplaceResults(assessmentID string, results []AssessmentResult) error
	AddHistory(e *HistoryEntry) error
}

// AssessmentStore abstracts persistence operations required by AssessmentService.
// InTx must run fn atomically: either every write it made is committed or none is.
type AssessmentStore interface {
	InTx(ctx context.Context, fn func(tx AssessmentTx) error) error
	LoadCatalog(ctx context.Context) (*Catalog, error)
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
	ListAssessments(ctx context.Context) ([]*Assessment, error)
	ListResults(ctx context.Context, assessmentID string) ([]AssessmentResult, error)
	ListHistory(ctx context.Context, assessmentID string) ([]HistoryEntry, error)
}

type CreateAssessmentRequest struct {
	CompanyID    string
	AssessorName string
	Notes        string
	Actor        string
}

type SaveProgressRequest struct {
	AssessmentID string
	Answers      []Answer
	Notes        *string
	Actor        string
}

// FinalizeRequest completes an assessment. When AssessmentID is empty a new
// assessment is created and completed in the same transaction.
type FinalizeRequest struct {
	AssessmentID string
	CompanyID    string
	AssessorName string
	Notes        *string
	Answers      []Answer
	Actor        string
}

// AssessmentService hosts the draft → completed lifecycle.
type AssessmentService struct {
	store AssessmentStore
	now   func() time.Time
	idGen func() string
}

func NewAssessmentService(store AssessmentStore) *AssessmentService {
	return &AssessmentService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(12) },
	}
}

func shortID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > 0 && n < len(id) {
		return id[:n]
	}
	return id
}

func (s *AssessmentService) Create(ctx context.Context, req CreateAssessmentRequest) (*Assessment, error) {
	if s.store == nil {
		return nil, errors.New("assessment service store is nil")
	}
	if strings.TrimSpace(req.CompanyID) == "" {
		return nil, NewInvalidError("company_id required")
	}
	var created *Assessment
	err := s.store.InTx(ctx, func(tx AssessmentTx) error {
		cat, err := tx.Catalog()
		if err != nil {
			return err
		}
		a, err := s.insertDraft(tx, cat, req.CompanyID, req.AssessorName, req.Notes, actorOr(req.Actor, req.AssessorName))
		if err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *AssessmentService) insertDraft(tx AssessmentTx, cat *Catalog, companyID, assessor, notes, actor string) (*Assessment, error) {
	company, err := tx.GetCompany(companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, NewNotFoundError("company not found")
	}
	now := s.now()
	a := &Assessment{
		ID:           s.idGen(),
		CompanyID:    company.ID,
		CompanyName:  company.Name,
		AssessorName: strings.TrimSpace(assessor),
		CreatedAt:    now,
		UpdatedAt:    now,
		Status:       StatusDraft,
		Notes:        notes,
	}
	if err := tx.InsertAssessment(a); err != nil {
		return nil, err
	}
	if err := tx.AddHistory(&HistoryEntry{
		AssessmentID: a.ID,
		Action:       ActionCreated,
		At:           now,
		Actor:        actor,
		Total:        cat.QuestionCount(),
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// SaveProgress replaces the draft's answer set wholesale and recomputes its
// completion percentage. Completed assessments are rejected untouched.
func (s *AssessmentService) SaveProgress(ctx context.Context, req SaveProgressRequest) (*Assessment, error) {
	if s.store == nil {
		return nil, errors.New("assessment service store is nil")
	}
	var saved *Assessment
	err := s.store.InTx(ctx, func(tx AssessmentTx) error {
		cat, err := tx.Catalog()
		if err != nil {
			return err
		}
		a, err := loadForTransition(tx, req.AssessmentID, "save progress")
		if err != nil {
			return err
		}
		if err := cat.ValidateAnswers(req.Answers); err != nil {
			return err
		}

		if err := tx.ReplaceResults(a.ID, toResults(a.ID, req.Answers)); err != nil {
			return err
		}
		now := s.now()
		total := cat.QuestionCount()
		a.CompletionPercentage = CompletionPercentage(len(req.Answers), total)
		a.UpdatedAt = now
		if req.Notes != nil {
			a.Notes = *req.Notes
		}
		if err := tx.UpdateAssessment(a); err != nil {
			return err
		}
		if err := tx.AddHistory(&HistoryEntry{
			AssessmentID: a.ID,
			Action:       ActionSavedDraft,
			At:           now,
			Actor:        actorOr(req.Actor, a.AssessorName),
			Answered:     len(req.Answers),
			Total:        total,
		}); err != nil {
			return err
		}
		saved = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Finalize scores the answer set, stores one result per answer and marks the
// assessment completed. Completion is set to 100 even for a partial answer set.
// State is checked before the answers, so a completed assessment always
// reports ErrInvalidState.
func (s *AssessmentService) Finalize(ctx context.Context, req FinalizeRequest) (*Assessment, error) {
	if s.store == nil {
		return nil, errors.New("assessment service store is nil")
	}
	if req.AssessmentID == "" && strings.TrimSpace(req.CompanyID) == "" {
		return nil, NewInvalidError("company_id required")
	}
	var done *Assessment
	err := s.store.InTx(ctx, func(tx AssessmentTx) error {
		cat, err := tx.Catalog()
		if err != nil {
			return err
		}
		var a *Assessment
		if req.AssessmentID == "" {
			notes := ""
			if req.Notes != nil {
				notes = *req.Notes
			}
			a, err = s.insertDraft(tx, cat, req.CompanyID, req.AssessorName, notes, actorOr(req.Actor, req.AssessorName))
		} else {
			a, err = loadForTransition(tx, req.AssessmentID, "finalize")
		}
		if err != nil {
			return err
		}
		if req.AssessmentID != "" {
			if err := s.applyOverrides(tx, a, req); err != nil {
				return err
			}
		}
		if err := cat.ValidateAnswers(req.Answers); err != nil {
			return err
		}

		scores := make(map[int64]int, len(req.Answers))
		for _, ans := range req.Answers {
			scores[ans.QuestionID] = ans.Score
		}
		total := ScoreTotal(scores)
		level := MaturityLevel(total, cat.MaxTotal())

		if err := tx.ReplaceResults(a.ID, toResults(a.ID, req.Answers)); err != nil {
			return err
		}
		now := s.now()
		a.Status = StatusCompleted
		a.CompletionPercentage = 100
		a.TotalScore = &total
		a.MaturityLevel = &level
		a.UpdatedAt = now
		if err := tx.UpdateAssessment(a); err != nil {
			return err
		}
		if err := tx.AddHistory(&HistoryEntry{
			AssessmentID: a.ID,
			Action:       ActionCompleted,
			At:           now,
			Actor:        actorOr(req.Actor, a.AssessorName),
			Answered:     len(req.Answers),
			Total:        cat.QuestionCount(),
		}); err != nil {
			return err
		}
		done = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

func (s *AssessmentService) applyOverrides(tx AssessmentTx, a *Assessment, req FinalizeRequest) error {
	if id := strings.TrimSpace(req.CompanyID); id != "" && id != a.CompanyID {
		company, err := tx.GetCompany(id)
		if err != nil {
			return err
		}
		if company == nil {
			return NewNotFoundError("company not found")
		}
		a.CompanyID = company.ID
		a.CompanyName = company.Name
	}
	if name := strings.TrimSpace(req.AssessorName); name != "" {
		a.AssessorName = name
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	return nil
}

// Discard hard-deletes a draft together with its results and history.
func (s *AssessmentService) Discard(ctx context.Context, id string) error {
	if s.store == nil {
		return errors.New("assessment service store is nil")
	}
	return s.store.InTx(ctx, func(tx AssessmentTx) error {
		a, err := loadForTransition(tx, id, "discard")
		if err != nil {
			return err
		}
		return tx.DeleteAssessment(a.ID)
	})
}

func (s *AssessmentService) Get(ctx context.Context, id string) (*Assessment, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	return a, nil
}

func (s *AssessmentService) List(ctx context.Context) ([]*Assessment, error) {
	return s.store.ListAssessments(ctx)
}

func (s *AssessmentService) Results(ctx context.Context, id string) ([]AssessmentResult, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListResults(ctx, id)
}

func (s *AssessmentService) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, id)
}

// loadForTransition fetches an assessment and rejects it unless it is a draft.
func loadForTransition(tx AssessmentTx, id, op string) (*Assessment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewInvalidError("assessment id required")
	}
	a, err := tx.GetAssessment(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	if a.Status != StatusDraft {
		return nil, NewInvalidStateError(a.ID, a.Status, op)
	}
	return a, nil
}

func toResults(assessmentID string, answers []Answer) []AssessmentResult {
	out := make([]AssessmentResult, 0, len(answers))
	for _, ans := range answers {
		out = append(out, AssessmentResult{
			AssessmentID: assessmentID,
			QuestionID:   ans.QuestionID,
			Score:        ans.Score,
			Comment:      strings.TrimSpace(ans.Comment),
		})
	}
	return out
}

func actorOr(actor, fallback string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return strings.TrimSpace(fallback)
}
