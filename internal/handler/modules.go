package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evalia/evalia/internal/flow"
	"github.com/evalia/evalia/internal/model"
)

func (h *Handler) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CodeID              string `json:"codeId"`
		Content             string `json:"content"`
		ProgrammingLanguage string `json:"programmingLanguage"`
		Language            string `json:"language"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lang, ok := h.contentLanguage(req.Language)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	content := req.Content
	progLang := req.ProgrammingLanguage
	if req.CodeID != "" {
		code, found := h.repos.Codes.Get(req.CodeID)
		if !found {
			respondError(w, r, http.StatusNotFound, "NotFound")
			return
		}
		content = code.Content
		if progLang == "" {
			progLang = code.Language
		}
	}
	if strings.TrimSpace(content) == "" {
		respondError(w, r, http.StatusBadRequest, "ContentRequired")
		return
	}

	questions, err := h.ai.GenerateOpenQuestions(r.Context(), content, progLang, lang)
	if err != nil {
		slog.Error("question generation failed", "codeId", req.CodeID, "error", err)
		respondError(w, r, http.StatusBadGateway, "AnalysisFailed")
		return
	}

	for i := range questions {
		if _, err := h.repos.Questions.Save(&questions[i]); err != nil {
			slog.Error("save question failed", "error", err)
			respondError(w, r, http.StatusInternalServerError, "SaveFailed")
			return
		}
	}
	respondJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleEvaluateAnswers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CodeID      string   `json:"codeId"`
		QuestionIDs []string `json:"questionIds"`
		Answers     []string `json:"answers"`
		StudentID   string   `json:"studentId"`
		Language    string   `json:"language"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lang, ok := h.contentLanguage(req.Language)
	if !ok || len(req.QuestionIDs) == 0 || len(req.Answers) != len(req.QuestionIDs) {
		respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	questions := make([]model.Question, 0, len(req.QuestionIDs))
	for _, id := range req.QuestionIDs {
		q, found := h.repos.Questions.Get(id)
		if !found {
			respondError(w, r, http.StatusNotFound, "NotFound")
			return
		}
		questions = append(questions, *q)
	}

	var content string
	if req.CodeID != "" {
		code, found := h.repos.Codes.Get(req.CodeID)
		if !found {
			respondError(w, r, http.StatusNotFound, "NotFound")
			return
		}
		content = code.Content
	}

	// The answering journey is replayed through its state machine so the
	// scoring guard (every question answered) holds regardless of client.
	journey := flow.NewOpenQuestions()
	if err := journey.Generate(questions); err != nil {
		h.respondFlowError(w, r, err)
		return
	}
	for i, answer := range req.Answers {
		if answer == "" {
			continue
		}
		if err := journey.Answer(i, answer); err != nil {
			h.respondFlowError(w, r, err)
			return
		}
	}
	if err := journey.BeginScoring(); err != nil {
		h.respondFlowError(w, r, err)
		return
	}

	result, err := h.ai.EvaluateOpenAnswers(r.Context(), questions, journey.Answers(), content, lang)
	if err != nil {
		slog.Error("answer evaluation failed", "codeId", req.CodeID, "error", err)
		respondError(w, r, http.StatusBadGateway, "AnalysisFailed")
		return
	}
	if err := journey.Complete(); err != nil {
		h.respondFlowError(w, r, err)
		return
	}

	now := time.Now()
	responses := make([]model.Response, len(req.Answers))
	for i, a := range req.Answers {
		responses[i] = model.Response{Text: a}
	}
	eval := model.Evaluation{
		Type:        model.ModuleOpenQuestions,
		StudentID:   req.StudentID,
		CodeID:      req.CodeID,
		Questions:   questions,
		Responses:   responses,
		Score:       result.TotalScore,
		MaxScore:    result.MaxTotalScore,
		CompletedAt: &now,
		Feedback:    result.OverallFeedback,
		Suggestions: result.Suggestions(),
	}
	if _, err := h.repos.Evaluations.Save(&eval); err != nil {
		slog.Error("save evaluation failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	respondJSON(w, http.StatusCreated, eval)
}

func (h *Handler) handleCreateImprovement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CodeID    string `json:"codeId"`
		StudentID string `json:"studentId"`
		Language  string `json:"language"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lang, ok := h.contentLanguage(req.Language)
	if !ok || req.CodeID == "" {
		respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	code, found := h.repos.Codes.Get(req.CodeID)
	if !found {
		respondError(w, r, http.StatusNotFound, "NotFound")
		return
	}

	report, err := h.ai.AnalyzeCode(r.Context(), code.Content, code.ProjectSpecs, code.Language, lang)
	if err != nil {
		slog.Error("code analysis failed", "codeId", req.CodeID, "error", err)
		respondError(w, r, http.StatusBadGateway, "AnalysisFailed")
		return
	}
	report.CodeID = code.ID

	if _, err := h.repos.Improvements.Save(report); err != nil {
		slog.Error("save improvement failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}

	now := time.Now()
	eval := model.Evaluation{
		Type:        model.ModuleCodeImprovement,
		StudentID:   req.StudentID,
		CodeID:      code.ID,
		Questions:   []model.Question{},
		Responses:   []model.Response{},
		Score:       float64(report.OverallScore),
		MaxScore:    100,
		CompletedAt: &now,
		Feedback:    report.Report,
	}
	if _, err := h.repos.Evaluations.Save(&eval); err != nil {
		slog.Error("save evaluation failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

func (h *Handler) handleListImprovements(w http.ResponseWriter, r *http.Request) {
	if codeID := r.URL.Query().Get("codeId"); codeID != "" {
		respondJSON(w, http.StatusOK, h.repos.ImprovementsByCode(codeID))
		return
	}
	respondJSON(w, http.StatusOK, h.repos.Improvements.List())
}

func (h *Handler) handleCreateLatexProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Language string `json:"language"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lang, ok := h.contentLanguage(req.Language)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, r, http.StatusBadRequest, "TitleRequired")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, r, http.StatusBadRequest, "ContentRequired")
		return
	}

	analysis, err := h.ai.GenerateExamFromLatex(r.Context(), req.Content, lang)
	if err != nil {
		slog.Error("latex analysis failed", "title", req.Title, "error", err)
		respondError(w, r, http.StatusBadGateway, "AnalysisFailed")
		return
	}

	project := model.LaTeXProject{
		Title:                 req.Title,
		Content:               req.Content,
		ExtractedCompetencies: analysis.Competencies,
		GeneratedQuestions:    analysis.Questions,
		Language:              lang,
	}
	if _, err := h.repos.LatexProjects.Save(&project); err != nil {
		slog.Error("save latex project failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}

	exam := model.MCQExam{
		ProjectID: project.ID,
		Title:     project.Title,
		Questions: analysis.Questions,
		Attempts:  []model.MCQAttempt{},
	}
	if _, err := h.repos.MCQExams.Save(&exam); err != nil {
		slog.Error("save mcq exam failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"project": project,
		"exam":    exam,
	})
}

func (h *Handler) handleListLatexProjects(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.repos.LatexProjects.List())
}

func (h *Handler) handleListMCQExams(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.repos.MCQExams.List())
}

func (h *Handler) handleGetMCQExam(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.repos.MCQExams.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string     `json:"studentId"`
		Answers   []int      `json:"answers"`
		Reported  []int      `json:"reportedQuestions"`
		StartedAt *time.Time `json:"startedAt"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	exam, found := h.repos.MCQExams.Get(chi.URLParam(r, "id"))
	if !found {
		respondError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	if len(req.Answers) != len(exam.Questions) {
		respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	started := time.Now()
	if req.StartedAt != nil {
		started = *req.StartedAt
	}

	// A negative answer index marks a skipped question. Scoring happens
	// locally against the stored exam, never via the model.
	journey := flow.NewMCQAttempt(*exam, req.StudentID)
	if err := journey.Start(started); err != nil {
		h.respondFlowError(w, r, err)
		return
	}
	for i, answer := range req.Answers {
		var err error
		if answer < 0 {
			err = journey.Skip(i)
		} else {
			err = journey.Select(i, answer)
		}
		if err != nil {
			h.respondFlowError(w, r, err)
			return
		}
	}
	for _, q := range req.Reported {
		if err := journey.Report(q); err != nil {
			h.respondFlowError(w, r, err)
			return
		}
	}
	attempt, err := journey.Finish(time.Now())
	if err != nil {
		h.respondFlowError(w, r, err)
		return
	}
	attempt.ID = "attempt_" + uuid.NewString()

	exam.Attempts = append(exam.Attempts, attempt)
	if _, err := h.repos.MCQExams.Save(exam); err != nil {
		slog.Error("save attempt failed", "examId", exam.ID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}

	responses := make([]model.Response, len(attempt.Answers))
	for i, a := range attempt.Answers {
		if a >= 0 {
			idx := a
			responses[i] = model.Response{Index: &idx}
		}
	}
	eval := model.Evaluation{
		Type:        model.ModuleMCQ,
		StudentID:   req.StudentID,
		CodeID:      "",
		Questions:   exam.Questions,
		Responses:   responses,
		Score:       attempt.Score,
		MaxScore:    attempt.MaxScore,
		StartedAt:   attempt.StartedAt,
		CompletedAt: attempt.CompletedAt,
	}
	if _, err := h.repos.Evaluations.Save(&eval); err != nil {
		slog.Error("save evaluation failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	respondJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) respondFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var te *flow.TransitionError
	if errors.As(err, &te) {
		respondTransitionError(w, r, te.Reason)
		return
	}
	respondError(w, r, http.StatusBadRequest, "InvalidRequest")
}
