package api

import (
	"net/http"

	"github.com/soaringjerry/Readiness/internal/services"
)

// GET /api/catalog
func (rt *Router) handleCatalog(w http.ResponseWriter, r *http.Request) error {
	cat, err := rt.catalog.Catalog(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newCatalogView(cat))
	return nil
}

func (rt *Router) handleListCategories(w http.ResponseWriter, r *http.Request) error {
	cat, err := rt.catalog.Catalog(r.Context())
	if err != nil {
		return err
	}
	type row struct {
		services.Category
		QuestionCount int `json:"question_count"`
	}
	out := []row{}
	for _, c := range cat.Categories() {
		out = append(out, row{Category: c, QuestionCount: len(cat.QuestionsIn(c.ID))})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
	return nil
}

// PUT /api/categories/{id}
func (rt *Router) handleUpdateCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathInt(r, "id")
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	c, err := rt.catalog.UpdateCategory(r.Context(), id, services.CategoryUpdate{Name: req.Name, Description: req.Description, Weight: *req.Weight})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, c)
	return nil
}

// PUT /api/categories/weights
func (rt *Router) handleSetWeights(w http.ResponseWriter, r *http.Request) error {
	var req weightsRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	weights := make(map[int64]float64, len(req.Weights))
	for _, wt := range req.Weights {
		weights[wt.CategoryID] = wt.Weight
	}
	if err := rt.catalog.SetWeights(r.Context(), weights); err != nil {
		return err
	}
	return rt.handleListCategories(w, r)
}

func (rt *Router) handleListQuestions(w http.ResponseWriter, r *http.Request) error {
	cat, err := rt.catalog.Catalog(r.Context())
	if err != nil {
		return err
	}
	type row struct {
		services.Question
		CategoryName string `json:"category_name"`
	}
	out := []row{}
	for _, q := range cat.Questions() {
		c, _ := cat.Category(q.CategoryID)
		out = append(out, row{Question: q, CategoryName: c.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": out})
	return nil
}

// POST /api/questions
func (rt *Router) handleAddQuestion(w http.ResponseWriter, r *http.Request) error {
	var req questionRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	if req.CategoryID == 0 {
		return services.NewInvalidError("category_id required")
	}
	q, err := rt.catalog.AddQuestion(r.Context(), services.QuestionInput{
		CategoryID: req.CategoryID, Code: req.Code, Title: req.Title, Description: req.Description, Options: req.Options,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, q)
	return nil
}

// PUT /api/questions/{id}
func (rt *Router) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) error {
	id, err := pathInt(r, "id")
	if err != nil {
		return err
	}
	var req questionRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	q, err := rt.catalog.UpdateQuestion(r.Context(), id, services.QuestionInput{
		Code: req.Code, Title: req.Title, Description: req.Description, Options: req.Options,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, q)
	return nil
}

// DELETE /api/questions/{id}
func (rt *Router) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) error {
	id, err := pathInt(r, "id")
	if err != nil {
		return err
	}
	if err := rt.catalog.DeleteQuestion(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /api/questions/reorder
func (rt *Router) handleReorder(w http.ResponseWriter, r *http.Request) error {
	changes, err := rt.catalog.ReorderByCode(r.Context())
	if err != nil {
		return err
	}
	if changes == nil {
		changes = []services.PositionChange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
	return nil
}

func (rt *Router) handleListCompanies(w http.ResponseWriter, r *http.Request) error {
	list, err := rt.companies.List(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": list})
	return nil
}

// POST /api/companies
func (rt *Router) handleCreateCompany(w http.ResponseWriter, r *http.Request) error {
	var req companyRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	c, err := rt.companies.Create(r.Context(), services.Company{
		Name: req.Name, Industry: req.Industry, Size: req.Size, ContactPerson: req.ContactPerson, ContactEmail: req.ContactEmail,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, c)
	return nil
}

func (rt *Router) handleGetCompany(w http.ResponseWriter, r *http.Request) error {
	c, err := rt.companies.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, c)
	return nil
}
