// Package handler exposes the JSON HTTP API: code submissions, the three
// exercise modules, the raw data surface, and the teacher dashboard.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evalia/evalia/internal/analytics"
	appI18n "github.com/evalia/evalia/internal/i18n"
	"github.com/evalia/evalia/internal/llm"
	"github.com/evalia/evalia/internal/model"
	"github.com/evalia/evalia/internal/store"
)

// Analyzer is the LLM gateway surface the handlers depend on. Tests inject a
// fake; production wires *llm.Client.
type Analyzer interface {
	GenerateOpenQuestions(ctx context.Context, code, progLang string, lang model.Language) ([]model.Question, error)
	EvaluateOpenAnswers(ctx context.Context, questions []model.Question, answers []string, code string, lang model.Language) (*llm.AnswerEvaluation, error)
	AnalyzeCode(ctx context.Context, code, projectSpecs, progLang string, lang model.Language) (*model.CodeImprovement, error)
	GenerateExamFromLatex(ctx context.Context, latexContent string, lang model.Language) (*llm.LatexAnalysis, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	repos     *store.Repositories
	ai        Analyzer
	analytics *analytics.Service
	config    model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, repos *store.Repositories, ai Analyzer, svc *analytics.Service, cfg model.ServerConfig) *Handler {
	return &Handler{store: s, repos: repos, ai: ai, analytics: svc, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/codes", h.handleCreateCode)
		r.Get("/codes", h.handleListCodes)
		r.Get("/codes/{id}", h.handleGetCode)

		r.Post("/open-questions/generate", h.handleGenerateQuestions)
		r.Post("/open-questions/evaluate", h.handleEvaluateAnswers)

		r.Post("/improvements", h.handleCreateImprovement)
		r.Get("/improvements", h.handleListImprovements)

		r.Post("/latex-projects", h.handleCreateLatexProject)
		r.Get("/latex-projects", h.handleListLatexProjects)
		r.Get("/mcq-exams", h.handleListMCQExams)
		r.Get("/mcq-exams/{id}", h.handleGetMCQExam)
		r.Post("/mcq-exams/{id}/attempts", h.handleCreateAttempt)

		r.Get("/data/{collection}", h.handleReadData)
		r.Post("/data/{collection}", h.handleWriteData)

		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireTeacher)
			r.Get("/analytics", h.handleAnalytics)
			r.Get("/dashboard/students", h.handleStudents)
			r.Get("/dashboard/students/{studentID}", h.handleStudentReport)
			r.Get("/dashboard/stats", h.handleStats)
			r.Get("/export", h.handleExport)
			r.Delete("/data", h.handleClearData)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, errorResponse{Error: appI18n.T(r.Context(), msgID)})
}

func respondTransitionError(w http.ResponseWriter, r *http.Request, reason string) {
	respondJSON(w, http.StatusConflict, errorResponse{
		Error: appI18n.Td(r.Context(), "InvalidTransition", map[string]any{"Reason": reason}),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return false
	}
	return true
}

// contentLanguage resolves the requested content language, falling back to
// the server default. An unknown tag is a validation error.
func (h *Handler) contentLanguage(raw string) (model.Language, bool) {
	if raw == "" {
		return h.config.DefaultLanguage, true
	}
	lang := model.Language(raw)
	return lang, lang.Valid()
}
