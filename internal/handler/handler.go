package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examhall/examhall/internal/exam"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/store"
)

// Config holds runtime handler parameters set via CLI flags.
type Config struct {
	SecureCookies bool // Set Secure flag on cookies (disable for local dev)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	svc    *exam.Service
	config Config
}

// New creates a new Handler.
func New(s *store.Store, svc *exam.Service, cfg Config) *Handler {
	return &Handler{store: s, svc: svc, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/logout", h.handleLogout)

		r.Route("/admin/users", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/", h.handleListUsers)
			r.Post("/", h.handleCreateUser)
			r.Post("/{userID}/toggle", h.handleToggleUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleSetter, model.UserRoleAdmin))
			r.Post("/exams", h.handleCreateExam)
			r.Get("/exams", h.handleListExams)
			r.Get("/exams/{examID}", h.handleGetExam)
			r.Put("/exams/{examID}", h.handleUpdateExam)
			r.Delete("/exams/{examID}", h.handleDeleteExam)
			r.Get("/exams/{examID}/submissions", h.handleListSubmissions)
			r.Get("/submissions/{submissionID}", h.handleGetSubmission)
			r.Post("/submissions/{submissionID}/evaluate", h.handleEvaluate)
			r.Post("/submissions/{submissionID}/auto-evaluate", h.handleAutoEvaluate)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTaker))
			r.Get("/available", h.handleAvailableExams)
			r.Post("/exams/{examID}/access", h.handleAccessExam)
			r.Post("/exams/{examID}/submit", h.handleSubmit)
			r.Get("/history", h.handleHistory)
			r.Get("/performance", h.handlePerformance)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError maps the error taxonomy to HTTP statuses and localized labels.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msgID := "InternalError"
	switch {
	case errors.Is(err, model.ErrNotFound):
		status, msgID = http.StatusNotFound, "NotFound"
	case errors.Is(err, model.ErrExamNotYetOpen):
		status, msgID = http.StatusForbidden, "ExamNotYetOpen"
	case errors.Is(err, model.ErrAccessDenied):
		status, msgID = http.StatusForbidden, "AccessDenied"
	case errors.Is(err, model.ErrAlreadyExists):
		status, msgID = http.StatusConflict, "AlreadyExists"
	case errors.Is(err, model.ErrInvalidInput):
		status, msgID = http.StatusBadRequest, "InvalidInput"
	case errors.Is(err, model.ErrExternalService):
		status, msgID = http.StatusBadGateway, "ScoringUnavailable"
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Error: appI18n.T(r.Context(), msgID)})
		return
	}
	writeJSON(w, status, errorResponse{Error: appI18n.T(r.Context(), msgID), Detail: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w: %w", model.ErrInvalidInput, err)
	}
	return nil
}

func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, model.ErrInvalidInput)
	}
	return id, nil
}
