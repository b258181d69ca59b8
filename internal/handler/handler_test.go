package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/evalia/evalia/internal/analytics"
	appI18n "github.com/evalia/evalia/internal/i18n"
	"github.com/evalia/evalia/internal/llm"
	"github.com/evalia/evalia/internal/model"
	"github.com/evalia/evalia/internal/store"
)

// fakeAnalyzer lets each test script the gateway's behavior.
type fakeAnalyzer struct {
	questions    []model.Question
	evaluation   *llm.AnswerEvaluation
	improvement  *model.CodeImprovement
	latex        *llm.LatexAnalysis
	err          error
	generateCall int
	evaluateCall int
}

func (f *fakeAnalyzer) GenerateOpenQuestions(_ context.Context, _, _ string, _ model.Language) ([]model.Question, error) {
	f.generateCall++
	if f.err != nil {
		return nil, f.err
	}
	// A fresh slice per call, as the gateway client builds one per response.
	out := make([]model.Question, len(f.questions))
	copy(out, f.questions)
	return out, nil
}

func (f *fakeAnalyzer) EvaluateOpenAnswers(_ context.Context, _ []model.Question, _ []string, _ string, _ model.Language) (*llm.AnswerEvaluation, error) {
	f.evaluateCall++
	return f.evaluation, f.err
}

func (f *fakeAnalyzer) AnalyzeCode(_ context.Context, _, _, _ string, _ model.Language) (*model.CodeImprovement, error) {
	return f.improvement, f.err
}

func (f *fakeAnalyzer) GenerateExamFromLatex(_ context.Context, _ string, _ model.Language) (*llm.LatexAnalysis, error) {
	return f.latex, f.err
}

type testEnv struct {
	handler *Handler
	router  http.Handler
	store   *store.Store
	repos   *store.Repositories
	ai      *fakeAnalyzer
}

func newTestEnv(t *testing.T, ai *fakeAnalyzer) *testEnv {
	t.Helper()
	if err := appI18n.Init("fr"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	repos := store.NewRepositories(s)
	if ai == nil {
		ai = &fakeAnalyzer{}
	}
	h := New(s, repos, ai, analytics.New(repos), model.ServerConfig{DefaultLanguage: model.LangFR})

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("fr"))
	h.Routes(r)

	return &testEnv{handler: h, router: r, store: s, repos: repos, ai: ai}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateCodeValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty content", map[string]string{"content": "  ", "filename": "main.go"}},
		{"missing filename", map[string]string{"content": "package main"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/codes", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			// No side effect before validation passes.
			if got := len(env.repos.Codes.List()); got != 0 {
				t.Errorf("expected nothing persisted, got %d codes", got)
			}
		})
	}
}

func TestCreateAndGetCode(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/codes", map[string]string{
		"content":  "package main",
		"language": "go",
		"filename": "main.go",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[model.StudentCode](t, rec)
	if !strings.HasPrefix(created.ID, "code_") {
		t.Errorf("expected generated id, got %q", created.ID)
	}
	if created.UploadedAt.IsZero() {
		t.Error("expected uploadedAt stamped")
	}

	rec = env.do(t, http.MethodGet, "/api/codes/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/codes/code_missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/codes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := len(decodeBody[[]model.StudentCode](t, rec)); got != 1 {
		t.Errorf("expected 1 code listed, got %d", got)
	}
}

func TestGenerateQuestions(t *testing.T) {
	// The gateway returns questions without ids; the store assigns them.
	ai := &fakeAnalyzer{questions: []model.Question{
		{Text: "Pourquoi ?", Type: model.QuestionOpen, Difficulty: model.DifficultyEasy, Language: model.LangFR},
		{Text: "Comment ?", Type: model.QuestionOpen, Difficulty: model.DifficultyHard, Language: model.LangFR},
	}}
	env := newTestEnv(t, ai)

	rec := env.do(t, http.MethodPost, "/api/open-questions/generate", map[string]string{
		"content":             "print('x')",
		"programmingLanguage": "python",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	questions := decodeBody[[]model.Question](t, rec)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if !strings.HasPrefix(q.ID, "q_") || q.ID == "q_" {
			t.Errorf("question %d: expected generated id, got %q", i, q.ID)
		}
	}
	if got := len(env.repos.Questions.List()); got != 2 {
		t.Errorf("expected questions persisted, got %d", got)
	}

	// A second generation round gets its own ids and must not replace the
	// first round's stored questions.
	rec = env.do(t, http.MethodPost, "/api/open-questions/generate", map[string]string{
		"content":             "print('y')",
		"programmingLanguage": "python",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on second round, got %d", rec.Code)
	}
	stored := env.repos.Questions.List()
	if len(stored) != 4 {
		t.Fatalf("expected 4 stored questions after two rounds, got %d", len(stored))
	}
	seen := map[string]bool{}
	for _, q := range stored {
		if seen[q.ID] {
			t.Errorf("duplicate stored question id %q", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestGenerateQuestionsGatewayFailure(t *testing.T) {
	ai := &fakeAnalyzer{err: errors.New("socket timeout on upstream 10.0.0.4")}
	env := newTestEnv(t, ai)

	rec := env.do(t, http.MethodPost, "/api/open-questions/generate", map[string]string{
		"content": "code",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	// The client sees one generic localized message, never the raw cause.
	if resp["error"] != "L'analyse a échoué. Veuillez réessayer." {
		t.Errorf("unexpected error message: %q", resp["error"])
	}
	if strings.Contains(rec.Body.String(), "socket timeout") {
		t.Error("internal error detail leaked to the client")
	}
	if got := len(env.repos.Questions.List()); got != 0 {
		t.Errorf("expected nothing persisted on failure, got %d", got)
	}
}

func TestGenerateQuestionsEnglishMessage(t *testing.T) {
	ai := &fakeAnalyzer{err: errors.New("boom")}
	env := newTestEnv(t, ai)

	req := httptest.NewRequest(http.MethodPost, "/api/open-questions/generate",
		strings.NewReader(`{"content":"code"}`))
	req.Header.Set("Accept-Language", "en")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Analysis failed") {
		t.Errorf("expected English message, got %s", rec.Body.String())
	}
}

func seedQuestions(t *testing.T, env *testEnv, ids ...string) {
	t.Helper()
	for _, id := range ids {
		q := model.Question{ID: id, Text: "Q " + id, Type: model.QuestionOpen, Difficulty: model.DifficultyEasy}
		if _, err := env.repos.Questions.Save(&q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
}

func TestEvaluateAnswers(t *testing.T) {
	ai := &fakeAnalyzer{evaluation: &llm.AnswerEvaluation{
		PerQuestion: []llm.QuestionScore{
			{QuestionID: "q1", Score: 8, MaxScore: 10, Suggestions: []string{"revoir la récursivité"}},
			{QuestionID: "q2", Score: 6, MaxScore: 10},
		},
		TotalScore:      14,
		MaxTotalScore:   20,
		OverallFeedback: "Bon travail.",
	}}
	env := newTestEnv(t, ai)
	seedQuestions(t, env, "q1", "q2")

	rec := env.do(t, http.MethodPost, "/api/open-questions/evaluate", map[string]any{
		"questionIds": []string{"q1", "q2"},
		"answers":     []string{"réponse 1", "réponse 2"},
		"studentId":   "alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	eval := decodeBody[model.Evaluation](t, rec)
	if eval.Type != model.ModuleOpenQuestions {
		t.Errorf("expected open-questions type, got %q", eval.Type)
	}
	if eval.Score != 14 || eval.MaxScore != 20 {
		t.Errorf("unexpected score %v/%v", eval.Score, eval.MaxScore)
	}
	if eval.StudentID != "alice" {
		t.Errorf("expected studentId kept, got %q", eval.StudentID)
	}
	if len(eval.Suggestions) != 1 {
		t.Errorf("expected flattened suggestions, got %v", eval.Suggestions)
	}
	if eval.CompletedAt == nil {
		t.Error("expected completedAt set")
	}
	if got := len(env.repos.Evaluations.List()); got != 1 {
		t.Errorf("expected evaluation persisted, got %d", got)
	}
}

func TestEvaluateAnswersUnansweredQuestion(t *testing.T) {
	ai := &fakeAnalyzer{}
	env := newTestEnv(t, ai)
	seedQuestions(t, env, "q1", "q2")

	rec := env.do(t, http.MethodPost, "/api/open-questions/evaluate", map[string]any{
		"questionIds": []string{"q1", "q2"},
		"answers":     []string{"seulement la première", ""},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if ai.evaluateCall != 0 {
		t.Error("gateway must not be called when the journey guard refuses")
	}
	if got := len(env.repos.Evaluations.List()); got != 0 {
		t.Errorf("expected nothing persisted, got %d", got)
	}
}

func TestEvaluateAnswersUnknownQuestion(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/open-questions/evaluate", map[string]any{
		"questionIds": []string{"ghost"},
		"answers":     []string{"x"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateImprovement(t *testing.T) {
	ai := &fakeAnalyzer{improvement: &model.CodeImprovement{
		Improvements: []model.Improvement{
			{Category: "lisibilité", Priority: model.PriorityHigh, Description: "d", Suggestion: "s"},
		},
		OverallScore: 72,
		Report:       "Rapport.",
	}}
	env := newTestEnv(t, ai)

	code := model.StudentCode{Content: "code", Filename: "f.go", Language: "go"}
	if _, err := env.repos.Codes.Save(&code); err != nil {
		t.Fatalf("seed code: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/improvements", map[string]string{
		"codeId":    code.ID,
		"studentId": "bob",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[model.CodeImprovement](t, rec)
	if report.CodeID != code.ID {
		t.Errorf("expected report linked to code, got %q", report.CodeID)
	}
	if !strings.HasPrefix(report.ID, "imp_") {
		t.Errorf("expected generated id, got %q", report.ID)
	}

	// The analysis also lands in the evaluation history, scored out of 100.
	evals := env.repos.Evaluations.List()
	if len(evals) != 1 {
		t.Fatalf("expected 1 evaluation, got %d", len(evals))
	}
	if evals[0].Type != model.ModuleCodeImprovement || evals[0].Score != 72 || evals[0].MaxScore != 100 {
		t.Errorf("unexpected evaluation: %+v", evals[0])
	}

	rec = env.do(t, http.MethodGet, "/api/improvements?codeId="+code.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := len(decodeBody[[]model.CodeImprovement](t, rec)); got != 1 {
		t.Errorf("expected 1 improvement listed, got %d", got)
	}
}

func TestCreateImprovementUnknownCode(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/improvements", map[string]string{"codeId": "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func intPtr(i int) *int { return &i }

func TestCreateLatexProject(t *testing.T) {
	ai := &fakeAnalyzer{latex: &llm.LatexAnalysis{
		Competencies: []string{"dérivation"},
		Questions: []model.Question{
			{ID: "q_mcq1", Text: "Dérivée de x² ?", Type: model.QuestionMCQ, Difficulty: model.DifficultyEasy,
				Options: []string{"x", "2x"}, CorrectAnswer: intPtr(1)},
		},
	}}
	env := newTestEnv(t, ai)

	rec := env.do(t, http.MethodPost, "/api/latex-projects", map[string]string{
		"title":   "Analyse",
		"content": `\section{Dérivées}`,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Project model.LaTeXProject `json:"project"`
		Exam    model.MCQExam      `json:"exam"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.Project.ID, "latex_") {
		t.Errorf("unexpected project id %q", resp.Project.ID)
	}
	if resp.Exam.ProjectID != resp.Project.ID {
		t.Errorf("expected exam linked to project, got %q", resp.Exam.ProjectID)
	}
	if len(resp.Exam.Questions) != 1 {
		t.Errorf("expected 1 exam question, got %d", len(resp.Exam.Questions))
	}

	rec = env.do(t, http.MethodGet, "/api/mcq-exams/"+resp.Exam.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateLatexProjectValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/latex-projects", map[string]string{"content": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/latex-projects", map[string]string{"title": "t"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing content, got %d", rec.Code)
	}
}

func seedExam(t *testing.T, env *testEnv) *model.MCQExam {
	t.Helper()
	exam := model.MCQExam{
		Title: "Test",
		Questions: []model.Question{
			{ID: "m1", Text: "Q1", Type: model.QuestionMCQ, Difficulty: model.DifficultyEasy,
				Options: []string{"a", "b"}, CorrectAnswer: intPtr(0)},
			{ID: "m2", Text: "Q2", Type: model.QuestionMCQ, Difficulty: model.DifficultyEasy,
				Options: []string{"a", "b"}, CorrectAnswer: intPtr(1)},
		},
		Attempts: []model.MCQAttempt{},
	}
	if _, err := env.repos.MCQExams.Save(&exam); err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	return &exam
}

func TestCreateAttempt(t *testing.T) {
	env := newTestEnv(t, nil)
	exam := seedExam(t, env)

	rec := env.do(t, http.MethodPost, "/api/mcq-exams/"+exam.ID+"/attempts", map[string]any{
		"studentId":         "alice",
		"answers":           []int{0, 0},
		"reportedQuestions": []int{1},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	attempt := decodeBody[model.MCQAttempt](t, rec)
	if attempt.Score != 1 || attempt.MaxScore != 2 {
		t.Errorf("unexpected score %v/%v", attempt.Score, attempt.MaxScore)
	}
	if len(attempt.ReportedQuestions) != 1 || attempt.ReportedQuestions[0] != 1 {
		t.Errorf("unexpected reported questions: %v", attempt.ReportedQuestions)
	}

	// Attempt appended to the stored exam, evaluation recorded.
	stored, _ := env.repos.MCQExams.Get(exam.ID)
	if len(stored.Attempts) != 1 {
		t.Fatalf("expected 1 stored attempt, got %d", len(stored.Attempts))
	}
	evals := env.repos.Evaluations.List()
	if len(evals) != 1 || evals[0].Type != model.ModuleMCQ {
		t.Fatalf("unexpected evaluations: %+v", evals)
	}
}

func TestCreateAttemptSkippedQuestion(t *testing.T) {
	env := newTestEnv(t, nil)
	exam := seedExam(t, env)

	rec := env.do(t, http.MethodPost, "/api/mcq-exams/"+exam.ID+"/attempts", map[string]any{
		"answers": []int{0, -1},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	attempt := decodeBody[model.MCQAttempt](t, rec)
	if len(attempt.SkippedQuestions) != 1 || attempt.SkippedQuestions[0] != 1 {
		t.Errorf("unexpected skipped questions: %v", attempt.SkippedQuestions)
	}
}

func TestCreateAttemptValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	exam := seedExam(t, env)

	rec := env.do(t, http.MethodPost, "/api/mcq-exams/"+exam.ID+"/attempts", map[string]any{
		"answers": []int{0},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong answer count, got %d", rec.Code)
	}

	// An out-of-range option is a refused transition.
	rec = env.do(t, http.MethodPost, "/api/mcq-exams/"+exam.ID+"/attempts", map[string]any{
		"answers": []int{0, 9},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for invalid option, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/mcq-exams/ghost/attempts", map[string]any{
		"answers": []int{},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown exam, got %d", rec.Code)
	}
}

func TestDataSurface(t *testing.T) {
	env := newTestEnv(t, nil)

	// A collection that was never written reads as an empty array.
	rec := env.do(t, http.MethodGet, "/api/data/evaluations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array body, got %q", rec.Body.String())
	}

	// Posting an array overwrites the collection wholesale.
	rec = env.do(t, http.MethodPost, "/api/data/codes", []map[string]string{
		{"id": "code_1", "content": "a"},
		{"content": "b"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/data/codes", nil)
	docs := decodeBody[[]json.RawMessage](t, rec)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	// A non-array body is a validation error.
	rec = env.do(t, http.MethodPost, "/api/data/codes", map[string]string{"id": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-array body, got %d", rec.Code)
	}
}

func seedTeacherAccount(t *testing.T, env *testEnv, accessCode string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(accessCode), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash access code: %v", err)
	}
	if _, err := env.store.CreateTeacher(model.Teacher{
		Label: "Enseignant 1", CodeHash: string(hash), Active: true,
	}); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
}

func login(t *testing.T, env *testEnv, accessCode string) *http.Cookie {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"accessCode": accessCode})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	seedTeacherAccount(t, env, "PROF2024")

	t.Run("wrong code", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"accessCode": "nope"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid code", func(t *testing.T) {
		cookie := login(t, env, "PROF2024")
		rec := env.do(t, http.MethodGet, "/api/analytics", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 with session, got %d", rec.Code)
		}
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		cookie := login(t, env, "PROF2024")
		rec := env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("logout failed: %d", rec.Code)
		}
		rec = env.do(t, http.MethodGet, "/api/analytics", nil, cookie)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 after logout, got %d", rec.Code)
		}
	})
}

func TestTeacherRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t, nil)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/analytics"},
		{http.MethodGet, "/api/dashboard/students"},
		{http.MethodGet, "/api/dashboard/stats"},
		{http.MethodGet, "/api/export"},
		{http.MethodDelete, "/api/data"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := env.do(t, p.method, p.path, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	seedTeacherAccount(t, env, "PROF2024")
	cookie := login(t, env, "PROF2024")

	evals := []model.Evaluation{
		{Type: model.ModuleOpenQuestions, StudentID: "alice", Score: 9, MaxScore: 10},
		{Type: model.ModuleMCQ, StudentID: "alice", Score: 2, MaxScore: 4},
	}
	for i := range evals {
		if _, err := env.repos.Evaluations.Save(&evals[i]); err != nil {
			t.Fatalf("seed evaluation: %v", err)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/analytics", nil, cookie)
	summary := decodeBody[analytics.Summary](t, rec)
	if summary.TotalEvaluations != 2 {
		t.Errorf("expected 2 evaluations, got %d", summary.TotalEvaluations)
	}

	rec = env.do(t, http.MethodGet, "/api/dashboard/students", nil, cookie)
	students := decodeBody[[]analytics.StudentPerformance](t, rec)
	if len(students) != 1 || students[0].StudentID != "alice" {
		t.Fatalf("unexpected students: %+v", students)
	}

	rec = env.do(t, http.MethodGet, "/api/dashboard/students/alice", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 report, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/dashboard/students/nobody", nil, cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown student, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/dashboard/stats", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 stats, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/export", nil, cookie)
	export := decodeBody[model.DataExport](t, rec)
	if len(export.Evaluations) != 2 {
		t.Errorf("expected 2 evaluations in export, got %d", len(export.Evaluations))
	}

	rec = env.do(t, http.MethodDelete, "/api/data", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 clear, got %d", rec.Code)
	}
	if got := len(env.repos.Evaluations.List()); got != 0 {
		t.Errorf("expected evaluations cleared, got %d", got)
	}
}
