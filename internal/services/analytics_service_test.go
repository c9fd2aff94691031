package services

import (
	"context"
	"math"
	"testing"
)

func TestAnalyticsSummary(t *testing.T) {
	ctx := context.Background()
	store := newStubAssessmentStore()
	svc := newTestAssessmentService(store)

	for _, answers := range [][]Answer{answersFor(28, 4), answersFor(28, 5), answersFor(10, 5)} {
		if _, err := svc.Finalize(ctx, FinalizeRequest{CompanyID: "C1", Answers: answers}); err != nil {
			t.Fatalf("Finalize returned error: %v", err)
		}
	}
	draft, _ := svc.Create(ctx, CreateAssessmentRequest{CompanyID: "C1"})
	if _, err := svc.SaveProgress(ctx, SaveProgressRequest{AssessmentID: draft.ID, Answers: answersFor(28, 1)}); err != nil {
		t.Fatalf("SaveProgress returned error: %v", err)
	}

	summary, err := NewAnalyticsService(store).Summary(ctx)
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if summary.Completed != 3 {
		t.Fatalf("completed=%d, want 3 (drafts excluded)", summary.Completed)
	}
	wantLevels := []int{1, 0, 0, 1, 1}
	for i, w := range wantLevels {
		if summary.LevelDistribution[i] != w {
			t.Fatalf("level distribution=%v, want %v", summary.LevelDistribution, wantLevels)
		}
	}

	q1 := summary.Questions[0]
	if q1.QuestionID != 1 || q1.Total != 3 || q1.Histogram[3] != 1 || q1.Histogram[4] != 2 || q1.Mean != 4.7 {
		t.Fatalf("question 1 stats=%+v", q1)
	}
	if q28 := summary.Questions[27]; q28.Total != 2 || q28.Histogram[0] != 0 {
		t.Fatalf("question 28 stats=%+v", q28)
	}

	if c := summary.Categories[0]; c.N != 3 || math.Abs(c.Alpha-1) > 1e-9 {
		t.Fatalf("category 1 stats=%+v", c)
	}
	// the partial assessment only reached three questions of category 2
	if c := summary.Categories[1]; c.N != 2 {
		t.Fatalf("category 2 n=%d, want 2", c.N)
	}
}

func TestAnalyticsSummaryEmpty(t *testing.T) {
	summary, err := NewAnalyticsService(newStubAssessmentStore()).Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if summary.Completed != 0 || len(summary.Questions) != 28 || len(summary.Categories) != 4 {
		t.Fatalf("unexpected empty summary: %+v", summary)
	}
	for _, c := range summary.Categories {
		if c.Alpha != 0 {
			t.Fatalf("alpha without data=%f", c.Alpha)
		}
	}
}
