package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// stubAssessmentStore keeps state in maps and restores a snapshot when a
// transaction callback fails, so tests can assert that nothing was written.
type stubAssessmentStore struct {
	mu          sync.Mutex
	catalog     *Catalog
	companies   map[string]*Company
	assessments map[string]*Assessment
	results     map[string][]AssessmentResult
	history     []HistoryEntry
	nextHistory int64
}

func newStubAssessmentStore() *stubAssessmentStore {
	return &stubAssessmentStore{
		catalog:     referenceCatalog(),
		companies:   map[string]*Company{"C1": {ID: "C1", Name: "Acme Manufacturing"}},
		assessments: map[string]*Assessment{},
		results:     map[string][]AssessmentResult{},
	}
}

type stubTx struct{ s *stubAssessmentStore }

func (s *stubAssessmentStore) InTx(_ context.Context, fn func(tx AssessmentTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assessments := map[string]*Assessment{}
	for k, v := range s.assessments {
		cp := *v
		assessments[k] = &cp
	}
	results := map[string][]AssessmentResult{}
	for k, v := range s.results {
		results[k] = append([]AssessmentResult(nil), v...)
	}
	history := append([]HistoryEntry(nil), s.history...)
	if err := fn(stubTx{s}); err != nil {
		s.assessments, s.results, s.history = assessments, results, history
		return err
	}
	return nil
}

func (s *stubAssessmentStore) LoadCatalog(context.Context) (*Catalog, error) { return s.catalog, nil }

func (s *stubAssessmentStore) GetAssessment(_ context.Context, id string) (*Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.assessments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *stubAssessmentStore) ListAssessments(context.Context) ([]*Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Assessment{}
	for _, a := range s.assessments {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubAssessmentStore) ListResults(_ context.Context, id string) ([]AssessmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AssessmentResult(nil), s.results[id]...), nil
}

func (s *stubAssessmentStore) ListHistory(_ context.Context, id string) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []HistoryEntry
	for _, h := range s.history {
		if h.AssessmentID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (t stubTx) Catalog() (*Catalog, error) { return t.s.catalog, nil }

func (t stubTx) GetCompany(id string) (*Company, error) {
	if c, ok := t.s.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (t stubTx) GetAssessment(id string) (*Assessment, error) {
	if a, ok := t.s.assessments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (t stubTx) InsertAssessment(a *Assessment) error {
	if _, ok := t.s.assessments[a.ID]; ok {
		return errors.New("duplicate assessment")
	}
	cp := *a
	t.s.assessments[a.ID] = &cp
	return nil
}

func (t stubTx) UpdateAssessment(a *Assessment) error {
	if _, ok := t.s.assessments[a.ID]; !ok {
		return errors.New("missing assessment")
	}
	cp := *a
	t.s.assessments[a.ID] = &cp
	return nil
}

func (t stubTx) DeleteAssessment(id string) error {
	delete(t.s.assessments, id)
	delete(t.s.results, id)
	kept := t.s.history[:0]
	for _, h := range t.s.history {
		if h.AssessmentID != id {
			kept = append(kept, h)
		}
	}
	t.s.history = kept
	return nil
}

func (t stubTx) ReplaceResults(id string, rs []AssessmentResult) error {
	t.s.results[id] = append([]AssessmentResult(nil), rs...)
	return nil
}

func (t stubTx) AddHistory(e *HistoryEntry) error {
	t.s.nextHistory++
	e.ID = t.s.nextHistory
	t.s.history = append(t.s.history, *e)
	return nil
}

func newTestAssessmentService(store *stubAssessmentStore) *AssessmentService {
	svc := NewAssessmentService(store)
	svc.now = func() time.Time { return time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC) }
	n := 0
	svc.idGen = func() string {
		n++
		return fmt.Sprintf("A%d", n)
	}
	return svc
}

// answersFor answers questions 1..n with the given score.
func answersFor(n, score int) []Answer {
	out := make([]Answer, 0, n)
	for id := 1; id <= n; id++ {
		out = append(out, Answer{QuestionID: int64(id), Score: score})
	}
	return out
}

func TestCreateStartsDraft(t *testing.T) {
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)

	a, err := svc.Create(context.Background(), CreateAssessmentRequest{CompanyID: "C1", AssessorName: "Kim"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if a.Status != StatusDraft || a.CompletionPercentage != 0 {
		t.Fatalf("new assessment=(%s,%d), want (draft,0)", a.Status, a.CompletionPercentage)
	}
	if a.TotalScore != nil || a.MaturityLevel != nil {
		t.Fatalf("draft should not carry a score: %+v", a)
	}
	if a.CompanyName != "Acme Manufacturing" {
		t.Fatalf("company name=%q", a.CompanyName)
	}
	hist, _ := store.ListHistory(context.Background(), a.ID)
	if len(hist) != 1 || hist[0].Action != ActionCreated || hist[0].Actor != "Kim" || hist[0].Total != 28 {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestCreateRequiresKnownCompany(t *testing.T) {
	svc := newTestAssessmentService(newStubAssessmentStore())
	if _, err := svc.Create(context.Background(), CreateAssessmentRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateAssessmentRequest{CompanyID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDraftThenFinalizeScenario(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)

	a, err := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1", AssessorName: "Kim"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	saved, err := svc.SaveProgress(ctx, SaveProgressRequest{AssessmentID: a.ID, Answers: answersFor(14, 3), Actor: "kim@example.com"})
	if err != nil {
		t.Fatalf("SaveProgress returned error: %v", err)
	}
	if saved.CompletionPercentage != 50 {
		t.Fatalf("completion=%d, want 50", saved.CompletionPercentage)
	}

	// 14 questions at 4 + 14 at 3 = 98 of 140 (70%)
	answers := append(answersFor(14, 4), answersFor(28, 3)[14:]...)
	done, err := svc.Finalize(ctx, FinalizeRequest{AssessmentID: a.ID, Answers: answers})
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if done.Status != StatusCompleted || done.CompletionPercentage != 100 {
		t.Fatalf("finalized=(%s,%d), want (completed,100)", done.Status, done.CompletionPercentage)
	}
	if *done.TotalScore != 98 || *done.MaturityLevel != 3 {
		t.Fatalf("score=(%d,%d), want (98,3)", *done.TotalScore, *done.MaturityLevel)
	}
	if got := len(store.results[a.ID]); got != 28 {
		t.Fatalf("stored results=%d, want 28", got)
	}

	hist, _ := store.ListHistory(ctx, a.ID)
	actions := []HistoryAction{ActionCreated, ActionSavedDraft, ActionCompleted}
	if len(hist) != len(actions) {
		t.Fatalf("history len=%d, want %d", len(hist), len(actions))
	}
	for i, want := range actions {
		if hist[i].Action != want {
			t.Fatalf("history[%d]=%s, want %s", i, hist[i].Action, want)
		}
	}
	if hist[1].Answered != 14 || hist[1].Total != 28 || hist[1].Actor != "kim@example.com" {
		t.Fatalf("saved_draft entry=%+v", hist[1])
	}
	if hist[2].Answered != 28 || hist[2].Actor != "Kim" {
		t.Fatalf("completed entry=%+v", hist[2])
	}
}

func TestSaveProgressOverwritesAnswers(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)
	a, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})

	if _, err := svc.SaveProgress(ctx, SaveProgressRequest{AssessmentID: a.ID, Answers: answersFor(20, 2)}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	saved, err := svc.SaveProgress(ctx, SaveProgressRequest{AssessmentID: a.ID, Answers: []Answer{{QuestionID: 5, Score: 4, Comment: " ok "}}})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	rs := store.results[a.ID]
	if len(rs) != 1 || rs[0].QuestionID != 5 || rs[0].Comment != "ok" {
		t.Fatalf("results after overwrite=%+v", rs)
	}
	if saved.CompletionPercentage != 3 {
		t.Fatalf("completion=%d, want 3", saved.CompletionPercentage)
	}
}

func TestSaveProgressOnCompletedIsRejected(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)
	a, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})
	if _, err := svc.Finalize(ctx, FinalizeRequest{AssessmentID: a.ID, Answers: answersFor(28, 5)}); err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	before := *store.assessments[a.ID]
	beforeResults := len(store.results[a.ID])
	beforeHistory := len(store.history)

	_, err := svc.SaveProgress(ctx, SaveProgressRequest{AssessmentID: a.ID, Answers: answersFor(3, 1)})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	after := *store.assessments[a.ID]
	if after.Status != before.Status || after.CompletionPercentage != before.CompletionPercentage ||
		*after.TotalScore != *before.TotalScore || *after.MaturityLevel != *before.MaturityLevel || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("assessment changed: before=%+v after=%+v", before, after)
	}
	if len(store.results[a.ID]) != beforeResults || len(store.history) != beforeHistory {
		t.Fatalf("results or history changed after rejected save")
	}
}

func TestFinalizeTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssessmentService(newStubAssessmentStore())
	a, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})
	if _, err := svc.Finalize(ctx, FinalizeRequest{AssessmentID: a.ID, Answers: answersFor(28, 4)}); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := svc.Finalize(ctx, FinalizeRequest{AssessmentID: a.ID, Answers: answersFor(28, 4)}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestFinalizeCompletedReportsStateBeforeAnswers(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)
	a, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})
	if _, err := svc.Finalize(ctx, FinalizeRequest{AssessmentID: a.ID, Answers: answersFor(28, 4)}); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	for name, answers := range map[string][]Answer{
		"out of range":     {{QuestionID: 1, Score: 9}},
		"unknown question": {{QuestionID: 999, Score: 3}},
	} {
		if _, err := svc.Finalize(ctx, FinalizeRequest{AssessmentID: a.ID, Answers: answers}); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("%s: expected invalid state error, got %v", name, err)
		}
	}
	if got := *store.assessments[a.ID].TotalScore; got != 112 {
		t.Fatalf("total after rejected finalize=%d, want 112", got)
	}
}

func TestFinalizePartialStillMarksComplete(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssessmentService(newStubAssessmentStore())
	a, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})
	done, err := svc.Finalize(ctx, FinalizeRequest{AssessmentID: a.ID, Answers: answersFor(10, 5)})
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	// 50 of 140 is 35.7%
	if done.CompletionPercentage != 100 || *done.TotalScore != 50 || *done.MaturityLevel != 1 {
		t.Fatalf("partial finalize=(%d,%d,%d), want (100,50,1)", done.CompletionPercentage, *done.TotalScore, *done.MaturityLevel)
	}
}

func TestFinalizeWithoutDraftCreatesAssessment(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)
	notes := "site visit"
	done, err := svc.Finalize(ctx, FinalizeRequest{CompanyID: "C1", AssessorName: "Lee", Notes: &notes, Answers: answersFor(28, 5)})
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if done.ID == "" || done.Status != StatusCompleted || *done.MaturityLevel != 5 || done.Notes != notes {
		t.Fatalf("unexpected assessment %+v", done)
	}
	hist, _ := store.ListHistory(ctx, done.ID)
	if len(hist) != 2 || hist[0].Action != ActionCreated || hist[1].Action != ActionCompleted {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestFinalizeRejectsBadAnswersWithoutWriting(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)

	_, err := svc.Finalize(ctx, FinalizeRequest{CompanyID: "C1", Answers: []Answer{{QuestionID: 404, Score: 3}}})
	if !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected unknown question error, got %v", err)
	}
	_, err = svc.Finalize(ctx, FinalizeRequest{CompanyID: "C1", Answers: []Answer{{QuestionID: 1, Score: 9}}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.assessments) != 0 || len(store.history) != 0 {
		t.Fatalf("rejected finalize wrote state: %d assessments, %d history", len(store.assessments), len(store.history))
	}
}

func TestSaveProgressRejectsUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)
	a, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})
	_, _ = svc.SaveProgress(ctx, SaveProgressRequest{AssessmentID: a.ID, Answers: answersFor(2, 2)})

	_, err := svc.SaveProgress(ctx, SaveProgressRequest{AssessmentID: a.ID, Answers: []Answer{{QuestionID: 1, Score: 5}, {QuestionID: 77, Score: 1}}})
	if !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected unknown question error, got %v", err)
	}
	if rs := store.results[a.ID]; len(rs) != 2 || rs[0].Score != 2 {
		t.Fatalf("results modified by rejected save: %+v", rs)
	}
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)
	a, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})
	_, _ = svc.SaveProgress(ctx, SaveProgressRequest{AssessmentID: a.ID, Answers: answersFor(5, 3)})

	if err := svc.Discard(ctx, a.ID); err != nil {
		t.Fatalf("Discard returned error: %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after discard, got %v", err)
	}
	if len(store.results[a.ID]) != 0 || len(store.history) != 0 {
		t.Fatalf("discard left rows behind")
	}
	if err := svc.Discard(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second discard, got %v", err)
	}
}

func TestDiscardCompletedIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssessmentService(newStubAssessmentStore())
	a, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})
	_, _ = svc.Finalize(ctx, FinalizeRequest{AssessmentID: a.ID, Answers: answersFor(28, 2)})
	if err := svc.Discard(ctx, a.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); err != nil {
		t.Fatalf("completed assessment should survive: %v", err)
	}
}
