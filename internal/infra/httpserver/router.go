package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	appanalyses "github.com/planscanhq/planscan/internal/application/analyses"
	appdocuments "github.com/planscanhq/planscan/internal/application/documents"
	apppractices "github.com/planscanhq/planscan/internal/application/practices"
	domanalyses "github.com/planscanhq/planscan/internal/domain/analyses"
	"github.com/planscanhq/planscan/internal/domain/apperrors"
	domdocuments "github.com/planscanhq/planscan/internal/domain/documents"
	"github.com/planscanhq/planscan/internal/domain/identity"
	"github.com/planscanhq/planscan/internal/middleware"
)

// errBadRequest marks validation failures for the HTTP error mapping.
var errBadRequest = errors.New("bad request")

type Router struct {
	practices *apppractices.Service
	documents *appdocuments.Service
	analyses  *appanalyses.Service
	tokens    *middleware.TokenManager
	tokenTTL  time.Duration
	maxUpload int64
}

type Options struct {
	Practices *apppractices.Service
	Documents *appdocuments.Service
	Analyses  *appanalyses.Service
	Tokens    *middleware.TokenManager
	TokenTTL  time.Duration
	MaxUpload int64
	Health    map[string]middleware.HealthChecker
}

func NewRouter(opts Options) http.Handler {
	rt := &Router{
		practices: opts.Practices,
		documents: opts.Documents,
		analyses:  opts.Analyses,
		tokens:    opts.Tokens,
		tokenTTL:  opts.TokenTTL,
		maxUpload: opts.MaxUpload,
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.BearerAuth(rt.tokens))
	mux.Use(middleware.RateLimitMiddleware(60, 10))

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/v1", func(r chi.Router) {
		r.Post("/auth/token", rt.wrap(rt.handleMintToken))
		r.Post("/practice", rt.wrap(rt.handleGetOrCreatePractice))
		r.Get("/practice", rt.wrap(rt.handleCurrentPractice))
		r.Post("/uploads", rt.wrap(rt.handleGenerateUploadTarget))
		r.Post("/documents", rt.wrap(rt.handleCreateDocument))
		r.Get("/documents", rt.wrap(rt.handleListDocuments))
		r.Get("/documents/{id}", rt.wrap(rt.handleGetDocument))
		r.Delete("/documents/{id}", rt.wrap(rt.handleDeleteDocument))
		r.Post("/documents/{id}/analyses", rt.wrap(rt.handleRunAnalysis))
		r.Get("/documents/{id}/analyses", rt.wrap(rt.handleListAnalyses))
		r.Get("/analyses/{id}", rt.wrap(rt.handleGetAnalysis))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (rt *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, apperrors.ErrUnauthenticated):
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrNoMembership):
			http.Error(w, "no practice membership", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrAccessDenied):
			http.Error(w, "access denied", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAnalysisInFlight):
			http.Error(w, "analysis already in flight", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUnsupportedContentType):
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		case errors.Is(err, apperrors.ErrURLResolution):
			http.Error(w, "document blob could not be resolved", http.StatusUnprocessableEntity)
		case errors.Is(err, errBadRequest):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/auth/token
// Body: {"email": "<address>"}; empty email mints a guest identity.
func (rt *Router) handleMintToken(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid body", errBadRequest)
	}

	var userID, email string
	if body.Email == "" {
		userID = "guest-" + uuid.New().String()
		email = userID + identity.GuestEmailSuffix
	} else {
		// Deterministic id so repeat logins land on the same practice.
		userID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+body.Email)).String()
		email = body.Email
	}

	token, err := rt.tokens.GenerateToken(userID, email, rt.tokenTTL)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"user_id": userID,
		"email":   email,
	})
}

// POST /v1/practice
func (rt *Router) handleGetOrCreatePractice(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	p, err := rt.practices.GetOrCreate(req.Context(), ident)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// GET /v1/practice, 204 when unauthenticated or no practice yet (soft-fail)
func (rt *Router) handleCurrentPractice(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	p, err := rt.practices.Current(req.Context(), ident)
	if err != nil {
		return err
	}
	if p == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	return writeJSON(w, http.StatusOK, p)
}

// POST /v1/uploads
func (rt *Router) handleGenerateUploadTarget(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	target, err := rt.documents.GenerateUploadTarget(req.Context(), ident)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, target)
}

// POST /v1/documents
func (rt *Router) handleCreateDocument(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())

	var body struct {
		StorageRef  string `json:"storage_ref"`
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		SizeBytes   int64  `json:"size_bytes"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid body", errBadRequest)
	}
	if err := middleware.ValidateStorageRef(body.StorageRef); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := middleware.ValidateFilename(body.Filename); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := middleware.ValidateContentType(body.ContentType); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := middleware.ValidateSizeBytes(body.SizeBytes, rt.maxUpload); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	d, err := rt.documents.Create(req.Context(), ident, appdocuments.CreateCommand{
		StorageRef:  body.StorageRef,
		Filename:    middleware.SanitizeString(body.Filename),
		ContentType: body.ContentType,
		SizeBytes:   body.SizeBytes,
	})
	if err != nil {
		return err
	}
	middleware.DocumentsUploaded.Inc()
	return writeJSON(w, http.StatusCreated, d)
}

// GET /v1/documents
func (rt *Router) handleListDocuments(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	list, err := rt.documents.List(req.Context(), ident)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/documents/{id}
func (rt *Router) handleGetDocument(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	id, err := pathID(req)
	if err != nil {
		return err
	}
	d, err := rt.documents.Get(req.Context(), ident, domdocuments.DocumentID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, d)
}

// DELETE /v1/documents/{id}
func (rt *Router) handleDeleteDocument(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	id, err := pathID(req)
	if err != nil {
		return err
	}
	if err := rt.documents.Delete(req.Context(), ident, domdocuments.DocumentID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/documents/{id}/analyses
func (rt *Router) handleRunAnalysis(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	id, err := pathID(req)
	if err != nil {
		return err
	}
	a, err := rt.analyses.Run(req.Context(), ident, domdocuments.DocumentID(id))
	if err != nil {
		return err
	}
	middleware.AnalysesStarted.Inc()
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"analysis_id": a.ID,
		"status":      a.Status,
		"queued_at":   a.CreatedAt,
	})
}

// GET /v1/documents/{id}/analyses
func (rt *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	id, err := pathID(req)
	if err != nil {
		return err
	}
	list, err := rt.analyses.List(req.Context(), ident, domdocuments.DocumentID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{id}
func (rt *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	id, err := pathID(req)
	if err != nil {
		return err
	}
	a, err := rt.analyses.Get(req.Context(), ident, domanalyses.AnalysisID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

func pathID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return id, nil
}
