package api

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/soaringjerry/Readiness/internal/middleware"
	"github.com/soaringjerry/Readiness/internal/services"
)

// Options carries deployment details that do not come from the store.
type Options struct {
	Commit      string
	BuildTime   string
	CORSOrigins []string
}

type Router struct {
	store       Store
	assessments *services.AssessmentService
	catalog     *services.CatalogService
	companies   *services.CompanyService
	reports     *services.ReportService
	exports     *services.ExportService
	analytics   *services.AnalyticsService
	auth        *services.AuthService
	authn       *middleware.Authenticator
	validate    *validator.Validate
	opts        Options
}

func NewRouter(store Store, authn *middleware.Authenticator, opts Options) *Router {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &Router{
		store:       store,
		assessments: services.NewAssessmentService(store),
		catalog:     services.NewCatalogService(store),
		companies:   services.NewCompanyService(store),
		reports:     services.NewReportService(store),
		exports:     services.NewExportService(store),
		analytics:   services.NewAnalyticsService(store),
		auth:        services.NewAuthService(store, authn.SignToken),
		authn:       authn,
		validate:    v,
		opts:        opts,
	}
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (rt *Router) wrap(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	})
}

func (rt *Router) authed(fn handlerFunc) http.Handler {
	return middleware.RequireAuth(rt.wrap(fn))
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.Handle("GET /health", rt.wrap(rt.handleHealth))
	mux.Handle("GET /version", rt.wrap(rt.handleVersion))

	mux.Handle("POST /api/auth/register", rt.wrap(rt.handleRegister))
	mux.Handle("POST /api/auth/login", rt.wrap(rt.handleLogin))

	mux.Handle("GET /api/catalog", rt.wrap(rt.handleCatalog))
	mux.Handle("GET /api/categories", rt.wrap(rt.handleListCategories))
	mux.Handle("PUT /api/categories/weights", rt.authed(rt.handleSetWeights))
	mux.Handle("PUT /api/categories/{id}", rt.authed(rt.handleUpdateCategory))
	mux.Handle("GET /api/questions", rt.wrap(rt.handleListQuestions))
	mux.Handle("POST /api/questions", rt.authed(rt.handleAddQuestion))
	mux.Handle("POST /api/questions/reorder", rt.authed(rt.handleReorder))
	mux.Handle("PUT /api/questions/{id}", rt.authed(rt.handleUpdateQuestion))
	mux.Handle("DELETE /api/questions/{id}", rt.authed(rt.handleDeleteQuestion))

	mux.Handle("GET /api/companies", rt.wrap(rt.handleListCompanies))
	mux.Handle("POST /api/companies", rt.authed(rt.handleCreateCompany))
	mux.Handle("GET /api/companies/{id}", rt.wrap(rt.handleGetCompany))

	mux.Handle("GET /api/assessments", rt.wrap(rt.handleListAssessments))
	mux.Handle("GET /api/assessments/export", rt.wrap(rt.handleExportList))
	mux.Handle("POST /api/assessments", rt.authed(rt.handleCreateAssessment))
	mux.Handle("POST /api/assessments/submit", rt.authed(rt.handleSubmit))
	mux.Handle("GET /api/assessments/{id}", rt.wrap(rt.handleGetAssessment))
	mux.Handle("PUT /api/assessments/{id}/draft", rt.authed(rt.handleSaveDraft))
	mux.Handle("POST /api/assessments/{id}/finalize", rt.authed(rt.handleFinalize))
	mux.Handle("DELETE /api/assessments/{id}", rt.authed(rt.handleDiscard))
	mux.Handle("GET /api/assessments/{id}/history", rt.wrap(rt.handleHistory))
	mux.Handle("GET /api/assessments/{id}/report", rt.wrap(rt.handleReport))
	mux.Handle("GET /api/assessments/{id}/chart", rt.wrap(rt.handleChart))
	mux.Handle("GET /api/assessments/{id}/export", rt.wrap(rt.handleExport))

	mux.Handle("GET /api/analytics", rt.wrap(rt.handleAnalytics))
}

// Handler returns the API mux wrapped in the standard middleware chain.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	return rt.Wrap(mux)
}

// Wrap applies the standard middleware chain to h.
func (rt *Router) Wrap(h http.Handler) http.Handler {
	return middleware.Chain(h,
		middleware.AccessLog,
		middleware.NoStore,
		middleware.SecureHeaders,
		middleware.CORSFor(rt.opts.CORSOrigins),
		rt.authn.WithAuth,
	)
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if err := rt.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "database unavailable"})
		return nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": "Readiness API", "commit": rt.opts.Commit})
	return nil
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]any{"commit": rt.opts.Commit, "build_time": rt.opts.BuildTime})
	return nil
}

func pathInt(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, services.NewInvalidError(name + " must be a positive integer")
	}
	return v, nil
}

func actor(r *http.Request) string {
	return middleware.ActorFromContext(r.Context())
}
