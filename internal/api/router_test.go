package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soaringjerry/Readiness/internal/db"
	"github.com/soaringjerry/Readiness/internal/middleware"
)

var _ Store = (*db.SQLiteStore)(nil)

type testServer struct {
	t     *testing.T
	h     http.Handler
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store, sqlDB, err := db.Open(ctx, filepath.Join(t.TempDir(), "api.db"), "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	sc, err := db.LoadSeedCatalog("")
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if _, err := store.SeedIfEmpty(ctx, sc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rt := NewRouter(store, middleware.NewAuthenticator("0123456789abcdef"), Options{Commit: "test"})
	return &testServer{t: t, h: rt.Handler()}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) decode(rr *httptest.ResponseRecorder, v any) {
	s.t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		s.t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func (s *testServer) login() {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "kim@example.com", "password": "Secret123", "name": "Kim"})
	if rr.Code != http.StatusCreated {
		s.t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	s.decode(rr, &res)
	s.token = res.Token
}

func (s *testServer) createCompany(name string) string {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/api/companies", map[string]string{"name": name, "industry": "자동차 부품"})
	if rr.Code != http.StatusCreated {
		s.t.Fatalf("create company status=%d body=%s", rr.Code, rr.Body.String())
	}
	var c struct {
		ID string `json:"id"`
	}
	s.decode(rr, &c)
	return c.ID
}

func answersBody(n, score int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for id := 1; id <= n; id++ {
		out = append(out, map[string]any{"question_id": id, "score": score})
	}
	return out
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t)
	if rr := s.do(http.MethodGet, "/health", nil); rr.Code != http.StatusOK {
		t.Fatalf("health status=%d", rr.Code)
	}
	rr := s.do(http.MethodGet, "/version", nil)
	if !strings.Contains(rr.Body.String(), `"commit":"test"`) {
		t.Fatalf("version body=%s", rr.Body.String())
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	s := newTestServer(t)
	if rr := s.do(http.MethodPost, "/api/companies", map[string]string{"name": "Acme"}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create status=%d, want 401", rr.Code)
	}
	if rr := s.do(http.MethodGet, "/api/catalog", nil); rr.Code != http.StatusOK {
		t.Fatalf("anonymous catalog status=%d, want 200", rr.Code)
	}
}

func TestValidationErrorsNameJSONFields(t *testing.T) {
	s := newTestServer(t)
	s.login()
	rr := s.do(http.MethodPost, "/api/companies", map[string]string{"contact_email": "not-an-email"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
	var body errorBody
	s.decode(rr, &body)
	if body.Fields["name"] != "required" || body.Fields["contact_email"] != "email" {
		t.Fatalf("fields=%v", body.Fields)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	s := newTestServer(t)
	var cat catalogView
	s.decode(s.do(http.MethodGet, "/api/catalog", nil), &cat)
	if cat.QuestionCount != 28 || cat.MaxTotal != 140 || len(cat.Categories) != 4 {
		t.Fatalf("catalog=(%d,%d,%d)", cat.QuestionCount, cat.MaxTotal, len(cat.Categories))
	}
	if q := cat.Categories[1].Questions[0]; q.Code != "2.1.1" || len(q.Options) != 5 {
		t.Fatalf("first question of category 2=%+v", q)
	}
}

func TestAssessmentJourney(t *testing.T) {
	s := newTestServer(t)
	s.login()
	companyID := s.createCompany("Acme Manufacturing")

	rr := s.do(http.MethodPost, "/api/assessments", map[string]string{"company_id": companyID, "assessor_name": "Kim"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var a struct {
		ID                   string `json:"id"`
		Status               string `json:"status"`
		CompletionPercentage int    `json:"completion_percentage"`
		TotalScore           *int   `json:"total_score"`
		MaturityLevel        *int   `json:"maturity_level"`
	}
	s.decode(rr, &a)
	id := a.ID

	rr = s.do(http.MethodPut, "/api/assessments/"+id+"/draft", map[string]any{"answers": answersBody(14, 3)})
	s.decode(rr, &a)
	if rr.Code != http.StatusOK || a.CompletionPercentage != 50 || a.TotalScore != nil {
		t.Fatalf("save draft=(%d,%+v)", rr.Code, a)
	}

	bad := map[string]any{"answers": []map[string]any{{"question_id": 1, "score": 9}}}
	if rr := s.do(http.MethodPut, "/api/assessments/"+id+"/draft", bad); rr.Code != http.StatusBadRequest {
		t.Fatalf("out of range status=%d, want 400", rr.Code)
	}
	unknown := map[string]any{"answers": []map[string]any{{"question_id": 999, "score": 3}}}
	if rr := s.do(http.MethodPut, "/api/assessments/"+id+"/draft", unknown); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown question status=%d, want 422", rr.Code)
	}

	rr = s.do(http.MethodPost, "/api/assessments/"+id+"/finalize", map[string]any{"answers": answersBody(28, 4)})
	s.decode(rr, &a)
	if rr.Code != http.StatusOK || a.Status != "completed" || *a.TotalScore != 112 || *a.MaturityLevel != 4 {
		t.Fatalf("finalize=(%d,%+v)", rr.Code, a)
	}

	if rr := s.do(http.MethodPut, "/api/assessments/"+id+"/draft", map[string]any{"answers": answersBody(1, 1)}); rr.Code != http.StatusConflict {
		t.Fatalf("save after finalize status=%d, want 409", rr.Code)
	}
	if rr := s.do(http.MethodPost, "/api/assessments/"+id+"/finalize", map[string]any{"answers": answersBody(1, 1)}); rr.Code != http.StatusConflict {
		t.Fatalf("second finalize status=%d, want 409", rr.Code)
	}
	if rr := s.do(http.MethodDelete, "/api/assessments/"+id, nil); rr.Code != http.StatusConflict {
		t.Fatalf("discard completed status=%d, want 409", rr.Code)
	}

	var hist struct {
		History []struct {
			Action string `json:"action"`
			Actor  string `json:"actor"`
		} `json:"history"`
	}
	s.decode(s.do(http.MethodGet, "/api/assessments/"+id+"/history", nil), &hist)
	if len(hist.History) != 3 || hist.History[2].Action != "completed" || hist.History[1].Actor != "kim@example.com" {
		t.Fatalf("history=%+v", hist.History)
	}

	var chart struct {
		Categories  []string  `json:"categories"`
		Percentages []float64 `json:"percentages"`
	}
	s.decode(s.do(http.MethodGet, "/api/assessments/"+id+"/chart", nil), &chart)
	if len(chart.Categories) != 4 || chart.Percentages[0] != 80 {
		t.Fatalf("chart=%+v", chart)
	}

	rr = s.do(http.MethodGet, "/api/assessments/"+id+"/export?format=xlsx", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Content-Disposition"), fmt.Sprintf("assessment_%s.xlsx", id)) {
		t.Fatalf("xlsx export=(%d,%q)", rr.Code, rr.Header().Get("Content-Disposition"))
	}
	rr = s.do(http.MethodGet, "/api/assessments/"+id+"/export?format=pdf", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("pdf export status=%d, want 400", rr.Code)
	}
	rr = s.do(http.MethodGet, "/api/assessments/export", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), id) {
		t.Fatalf("list export=(%d,%s)", rr.Code, rr.Body.String())
	}

	var summary struct {
		Completed         int   `json:"completed"`
		LevelDistribution []int `json:"level_distribution"`
	}
	s.decode(s.do(http.MethodGet, "/api/analytics", nil), &summary)
	if summary.Completed != 1 || summary.LevelDistribution[3] != 1 {
		t.Fatalf("analytics=%+v", summary)
	}
}

func TestSubmitAndDiscard(t *testing.T) {
	s := newTestServer(t)
	s.login()
	companyID := s.createCompany("Beta")

	rr := s.do(http.MethodPost, "/api/assessments/submit", map[string]any{"company_id": companyID, "answers": answersBody(28, 5)})
	if rr.Code != http.StatusCreated || !strings.Contains(rr.Body.String(), `"maturity_level":5`) {
		t.Fatalf("submit=(%d,%s)", rr.Code, rr.Body.String())
	}

	rr = s.do(http.MethodPost, "/api/assessments", map[string]string{"company_id": companyID})
	var a struct {
		ID string `json:"id"`
	}
	s.decode(rr, &a)
	if rr := s.do(http.MethodDelete, "/api/assessments/"+a.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("discard status=%d", rr.Code)
	}
	if rr := s.do(http.MethodGet, "/api/assessments/"+a.ID, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get discarded status=%d, want 404", rr.Code)
	}

	var companies struct {
		Companies []struct {
			AssessmentCount int `json:"assessment_count"`
		} `json:"companies"`
	}
	s.decode(s.do(http.MethodGet, "/api/companies", nil), &companies)
	if len(companies.Companies) != 1 || companies.Companies[0].AssessmentCount != 1 {
		t.Fatalf("companies=%+v", companies)
	}
}

func TestCatalogAdministration(t *testing.T) {
	s := newTestServer(t)
	s.login()

	rr := s.do(http.MethodPut, "/api/categories/weights", map[string]any{"weights": []map[string]any{{"category_id": 1, "weight": 0.5}}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unbalanced weights status=%d, want 400", rr.Code)
	}
	rr = s.do(http.MethodPut, "/api/categories/weights", map[string]any{"weights": []map[string]any{
		{"category_id": 1, "weight": 0.4}, {"category_id": 2, "weight": 0.3},
	}})
	if rr.Code != http.StatusOK {
		t.Fatalf("weights status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = s.do(http.MethodPost, "/api/questions", map[string]any{"category_id": 4, "code": "4.3.3", "title": "APS 성과 측정 체계"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add question status=%d body=%s", rr.Code, rr.Body.String())
	}
	var q struct {
		ID int64 `json:"id"`
	}
	s.decode(rr, &q)

	var cat catalogView
	s.decode(s.do(http.MethodGet, "/api/catalog", nil), &cat)
	if cat.MaxTotal != 145 {
		t.Fatalf("max total=%d, want 145", cat.MaxTotal)
	}

	if rr := s.do(http.MethodDelete, fmt.Sprintf("/api/questions/%d", q.ID), nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete question status=%d", rr.Code)
	}
	if rr := s.do(http.MethodDelete, "/api/questions/abc", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d, want 400", rr.Code)
	}
	rr = s.do(http.MethodPost, "/api/questions/reorder", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"changes":[]`) {
		t.Fatalf("reorder=(%d,%s)", rr.Code, rr.Body.String())
	}
}
