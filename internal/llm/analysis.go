package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/evalia/evalia/internal/llm/prompts"
	"github.com/evalia/evalia/internal/model"
)

// QuestionScore is the model's grade for one answer.
type QuestionScore struct {
	QuestionID  string   `json:"questionId"`
	Score       float64  `json:"score"`
	MaxScore    float64  `json:"maxScore"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// AnswerEvaluation is the validated result of grading a full answer set.
type AnswerEvaluation struct {
	PerQuestion     []QuestionScore `json:"evaluations"`
	TotalScore      float64         `json:"totalScore"`
	MaxTotalScore   float64         `json:"maxTotalScore"`
	OverallFeedback string          `json:"overallFeedback"`
}

// Suggestions flattens the per-question suggestion lists.
func (a AnswerEvaluation) Suggestions() []string {
	var out []string
	for _, q := range a.PerQuestion {
		out = append(out, q.Suggestions...)
	}
	return out
}

// LatexAnalysis is the validated result of analyzing a LaTeX document.
type LatexAnalysis struct {
	Competencies []string
	Questions    []model.Question
}

// GenerateOpenQuestions asks the model for ten open questions about the
// submitted code and returns them validated. progLang is the programming
// language of the code, lang the content language of the questions.
func (c *Client) GenerateOpenQuestions(ctx context.Context, code, progLang string, lang model.Language) ([]model.Question, error) {
	raw, err := c.Complete(ctx,
		prompts.OpenQuestionsSystem(lang),
		prompts.OpenQuestionsUser(code, progLang, lang),
		WithTemperature(0.5),
	)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSON(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if !gjson.Get(payload, "questions").IsArray() {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("missing questions array")}
	}

	var parsed struct {
		Questions []struct {
			Text       string           `json:"text"`
			Difficulty model.Difficulty `json:"difficulty"`
			Context    string           `json:"context"`
			Category   string           `json:"category"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if len(parsed.Questions) == 0 {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("empty questions array")}
	}

	// Model-chosen ids are discarded: the store assigns a fresh id when the
	// question is saved, so repeated generations never collide.
	questions := make([]model.Question, 0, len(parsed.Questions))
	for _, pq := range parsed.Questions {
		q := model.Question{
			Text:       pq.Text,
			Type:       model.QuestionOpen,
			Difficulty: pq.Difficulty,
			Context:    pq.Context,
			Category:   pq.Category,
			Language:   lang,
		}
		if err := q.Validate(); err != nil {
			return nil, &MalformedResponseError{Raw: raw, Err: err}
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// EvaluateOpenAnswers asks the model to grade the student's answers against
// the generated questions and the original code.
func (c *Client) EvaluateOpenAnswers(ctx context.Context, questions []model.Question, answers []string, code string, lang model.Language) (*AnswerEvaluation, error) {
	pairs := make([]prompts.QAPair, len(questions))
	for i, q := range questions {
		answer := "Pas de réponse"
		if lang == model.LangEN {
			answer = "No answer"
		}
		if i < len(answers) && strings.TrimSpace(answers[i]) != "" {
			answer = prompts.Sanitize(answers[i])
		}
		pairs[i] = prompts.QAPair{
			Question:   q.Text,
			Answer:     answer,
			Difficulty: q.Difficulty,
			Context:    q.Context,
		}
	}
	pairsJSON, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal question/answer pairs: %w", err)
	}

	raw, err := c.Complete(ctx,
		prompts.EvaluateAnswersSystem(lang),
		prompts.EvaluateAnswersUser(code, string(pairsJSON), lang),
		WithTemperature(0.3),
	)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSON(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	var result AnswerEvaluation
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if result.TotalScore < 0 || result.MaxTotalScore <= 0 || result.TotalScore > result.MaxTotalScore {
		return nil, &MalformedResponseError{Raw: raw,
			Err: fmt.Errorf("total score %.2f outside [0, %.2f]", result.TotalScore, result.MaxTotalScore)}
	}
	if len(result.PerQuestion) == 0 {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("missing evaluations array")}
	}
	for _, qs := range result.PerQuestion {
		if qs.Score < 0 || qs.MaxScore <= 0 || qs.Score > qs.MaxScore {
			return nil, &MalformedResponseError{Raw: raw,
				Err: fmt.Errorf("question %s: score %.2f outside [0, %.2f]", qs.QuestionID, qs.Score, qs.MaxScore)}
		}
	}
	return &result, nil
}

// AnalyzeCode asks the model for a code review report. The returned record
// carries no CodeID; the caller links it to the stored code.
func (c *Client) AnalyzeCode(ctx context.Context, code, projectSpecs, progLang string, lang model.Language) (*model.CodeImprovement, error) {
	raw, err := c.Complete(ctx,
		prompts.ImprovementSystem(projectSpecs != "", lang),
		prompts.ImprovementUser(code, projectSpecs, progLang, lang),
		WithTemperature(0.4),
	)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSON(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	var result model.CodeImprovement
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	result.ID = ""
	result.CodeID = ""
	if result.Report == "" {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("missing report")}
	}
	if err := result.Validate(); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	return &result, nil
}

// GenerateExamFromLatex asks the model to extract competencies from a LaTeX
// document and produce MCQ questions for them, all validated.
func (c *Client) GenerateExamFromLatex(ctx context.Context, latexContent string, lang model.Language) (*LatexAnalysis, error) {
	raw, err := c.Complete(ctx,
		prompts.LatexExamSystem(lang),
		prompts.LatexExamUser(latexContent, lang),
		WithTemperature(0.5),
	)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSON(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if !gjson.Get(payload, "questions").IsArray() {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("missing questions array")}
	}

	var parsed struct {
		Competencies []string `json:"competencies"`
		Questions    []struct {
			Text          string           `json:"text"`
			Options       []string         `json:"options"`
			CorrectAnswer *int             `json:"correctAnswer"`
			Difficulty    model.Difficulty `json:"difficulty"`
			Category      string           `json:"category"`
			Competency    string           `json:"competency"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if len(parsed.Questions) == 0 {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("empty questions array")}
	}

	analysis := &LatexAnalysis{Competencies: parsed.Competencies}
	for _, pq := range parsed.Questions {
		category := pq.Category
		if category == "" {
			category = pq.Competency
		}
		// Exam questions live embedded in the exam document and never pass
		// through the store's id assignment, so the id is generated here.
		q := model.Question{
			ID:            "q_" + uuid.NewString(),
			Text:          pq.Text,
			Type:          model.QuestionMCQ,
			Difficulty:    pq.Difficulty,
			Context:       pq.Competency,
			Category:      category,
			Language:      lang,
			Options:       pq.Options,
			CorrectAnswer: pq.CorrectAnswer,
		}
		if err := q.Validate(); err != nil {
			return nil, &MalformedResponseError{Raw: raw, Err: err}
		}
		analysis.Questions = append(analysis.Questions, q)
	}
	return analysis, nil
}

// extractJSON locates the JSON object in raw model output, tolerating
// markdown code fences and prose around the object.
func extractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "```") {
		if idx := strings.Index(trimmed, "\n"); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	if gjson.Valid(trimmed) && strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if gjson.Valid(candidate) {
			return candidate, nil
		}
	}
	return "", errors.New("response is not a JSON object")
}
