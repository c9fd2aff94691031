package api

import (
	"fmt"
	"net/http"

	"github.com/soaringjerry/Readiness/internal/services"
)

func (rt *Router) handleListAssessments(w http.ResponseWriter, r *http.Request) error {
	list, err := rt.assessments.List(r.Context())
	if err != nil {
		return err
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := []*services.Assessment{}
		for _, a := range list {
			if string(a.Status) == status {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": list})
	return nil
}

// POST /api/assessments creates a draft.
func (rt *Router) handleCreateAssessment(w http.ResponseWriter, r *http.Request) error {
	var req createAssessmentRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	a, err := rt.assessments.Create(r.Context(), services.CreateAssessmentRequest{
		CompanyID: req.CompanyID, AssessorName: req.AssessorName, Notes: req.Notes, Actor: actor(r),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, a)
	return nil
}

// POST /api/assessments/submit creates and completes an assessment in one step.
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) error {
	var req submitRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	a, err := rt.assessments.Finalize(r.Context(), services.FinalizeRequest{
		CompanyID: req.CompanyID, AssessorName: req.AssessorName, Notes: req.Notes,
		Answers: toAnswers(req.Answers), Actor: actor(r),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, a)
	return nil
}

func (rt *Router) handleGetAssessment(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")
	a, err := rt.assessments.Get(r.Context(), id)
	if err != nil {
		return err
	}
	results, err := rt.assessments.Results(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessment": a, "results": results})
	return nil
}

// PUT /api/assessments/{id}/draft
func (rt *Router) handleSaveDraft(w http.ResponseWriter, r *http.Request) error {
	var req saveDraftRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	a, err := rt.assessments.SaveProgress(r.Context(), services.SaveProgressRequest{
		AssessmentID: r.PathValue("id"), Answers: toAnswers(req.Answers), Notes: req.Notes, Actor: actor(r),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// POST /api/assessments/{id}/finalize
func (rt *Router) handleFinalize(w http.ResponseWriter, r *http.Request) error {
	var req finalizeRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	a, err := rt.assessments.Finalize(r.Context(), services.FinalizeRequest{
		AssessmentID: r.PathValue("id"), CompanyID: req.CompanyID, AssessorName: req.AssessorName,
		Notes: req.Notes, Answers: toAnswers(req.Answers), Actor: actor(r),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// DELETE /api/assessments/{id} discards a draft.
func (rt *Router) handleDiscard(w http.ResponseWriter, r *http.Request) error {
	if err := rt.assessments.Discard(r.Context(), r.PathValue("id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (rt *Router) handleHistory(w http.ResponseWriter, r *http.Request) error {
	hist, err := rt.assessments.History(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": hist})
	return nil
}

func (rt *Router) handleReport(w http.ResponseWriter, r *http.Request) error {
	rep, err := rt.reports.Build(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rep)
	return nil
}

func (rt *Router) handleChart(w http.ResponseWriter, r *http.Request) error {
	chart, err := rt.reports.Chart(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, chart)
	return nil
}

// GET /api/assessments/{id}/export?format=csv|xlsx
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) error {
	res, err := rt.exports.ExportAssessment(r.Context(), services.ExportParams{
		AssessmentID: r.PathValue("id"), Format: r.URL.Query().Get("format"),
	})
	if err != nil {
		return err
	}
	writeAttachment(w, res)
	return nil
}

// GET /api/assessments/export
func (rt *Router) handleExportList(w http.ResponseWriter, r *http.Request) error {
	res, err := rt.exports.ExportList(r.Context())
	if err != nil {
		return err
	}
	writeAttachment(w, res)
	return nil
}

func writeAttachment(w http.ResponseWriter, res *services.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	_, _ = w.Write(res.Data)
}

func (rt *Router) handleAnalytics(w http.ResponseWriter, r *http.Request) error {
	summary, err := rt.analytics.Summary(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}
