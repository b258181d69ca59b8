package model

import (
	"context"
	"fmt"
	"time"
)

// Language is a content language tag.
type Language string

const (
	LangFR Language = "fr"
	LangEN Language = "en"
)

// Valid reports whether the language is one the platform supports.
func (l Language) Valid() bool {
	return l == LangFR || l == LangEN
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether the difficulty is a known level.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// QuestionType distinguishes open questions from multiple-choice ones.
type QuestionType string

const (
	QuestionOpen QuestionType = "open"
	QuestionMCQ  QuestionType = "mcq"
)

// ModuleType identifies one of the three exercise modules.
type ModuleType string

const (
	ModuleOpenQuestions   ModuleType = "open-questions"
	ModuleCodeImprovement ModuleType = "code-improvement"
	ModuleMCQ             ModuleType = "mcq"
)

// Valid reports whether the module type is one of the three modules.
func (m ModuleType) Valid() bool {
	return m == ModuleOpenQuestions || m == ModuleCodeImprovement || m == ModuleMCQ
}

// StudentCode is a student's submitted source file. Immutable after creation.
type StudentCode struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Language     string    `json:"language"`
	Filename     string    `json:"filename"`
	UploadedAt   time.Time `json:"uploadedAt"`
	ProjectSpecs string    `json:"projectSpecs,omitempty"`
}

// Question is a generated exam question, open or multiple-choice.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Difficulty    Difficulty   `json:"difficulty"`
	Context       string       `json:"context"`
	Category      string       `json:"category"`
	Language      Language     `json:"language"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *int         `json:"correctAnswer,omitempty"`
}

// Validate checks the structural invariants of a question. For MCQ questions
// the options must be non-empty and correctAnswer a valid index into them.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %s: empty text", q.ID)
	}
	if q.Type != QuestionOpen && q.Type != QuestionMCQ {
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("question %s: unknown difficulty %q", q.ID, q.Difficulty)
	}
	if q.Type == QuestionMCQ {
		if len(q.Options) == 0 {
			return fmt.Errorf("question %s: mcq without options", q.ID)
		}
		if q.CorrectAnswer == nil || *q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("question %s: correctAnswer out of range", q.ID)
		}
	}
	return nil
}

// Evaluation is a scored record of one completed student exercise.
type Evaluation struct {
	ID          string     `json:"id"`
	Type        ModuleType `json:"type"`
	StudentID   string     `json:"studentId,omitempty"`
	CodeID      string     `json:"codeId,omitempty"`
	Questions   []Question `json:"questions"`
	Responses   []Response `json:"responses"`
	Score       float64    `json:"score"`
	MaxScore    float64    `json:"maxScore"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Feedback    string     `json:"feedback"`
	Suggestions []string   `json:"suggestions"`
}

// Validate checks the structural invariants of an evaluation.
func (e Evaluation) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("evaluation %s: unknown type %q", e.ID, e.Type)
	}
	if e.Score < 0 || e.MaxScore < 0 || e.Score > e.MaxScore {
		return fmt.Errorf("evaluation %s: score %.2f outside [0, %.2f]", e.ID, e.Score, e.MaxScore)
	}
	if len(e.Responses) != len(e.Questions) {
		return fmt.Errorf("evaluation %s: %d responses for %d questions", e.ID, len(e.Responses), len(e.Questions))
	}
	return nil
}

// Percentage returns the score as a 0-100 percentage, 0 when maxScore is 0.
func (e Evaluation) Percentage() float64 {
	if e.MaxScore == 0 {
		return 0
	}
	return e.Score / e.MaxScore * 100
}

// Response is one answer in an evaluation: free text for open questions,
// a selected option index for MCQ ones.
type Response struct {
	Text  string `json:"text,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// Priority ranks an improvement.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is a known level.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Improvement is one suggested change in a code-improvement report.
type Improvement struct {
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion"`
	LineNumbers []int    `json:"lineNumbers,omitempty"`
}

// ExternalQuestion is a question meant for someone outside the project,
// produced alongside a code-improvement report.
type ExternalQuestion struct {
	Question string `json:"question"`
	Purpose  string `json:"purpose"`
}

// CodeImprovement is the full analysis report for one submitted code.
type CodeImprovement struct {
	ID                string             `json:"id"`
	CodeID            string             `json:"codeId"`
	Improvements      []Improvement      `json:"improvements"`
	ExternalQuestions []ExternalQuestion `json:"externalQuestions"`
	OverallScore      int                `json:"overallScore"`
	Report            string             `json:"report"`
}

// Validate checks the structural invariants of a code-improvement report.
func (c CodeImprovement) Validate() error {
	if c.OverallScore < 0 || c.OverallScore > 100 {
		return fmt.Errorf("improvement %s: overallScore %d outside [0, 100]", c.ID, c.OverallScore)
	}
	for _, imp := range c.Improvements {
		if !imp.Priority.Valid() {
			return fmt.Errorf("improvement %s: unknown priority %q", c.ID, imp.Priority)
		}
	}
	return nil
}

// LaTeXProject is an uploaded LaTeX document with the competencies and MCQ
// questions extracted from it.
type LaTeXProject struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Content               string     `json:"content"`
	ExtractedCompetencies []string   `json:"extractedCompetencies"`
	GeneratedQuestions    []Question `json:"generatedQuestions"`
	Language              Language   `json:"language"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// MCQExam groups the generated questions of a LaTeX project into an exam.
type MCQExam struct {
	ID         string       `json:"id"`
	ProjectID  string       `json:"projectId"`
	Title      string       `json:"title"`
	Questions  []Question   `json:"questions"`
	Duration   int          `json:"duration,omitempty"`
	Randomized bool         `json:"randomized"`
	CreatedAt  time.Time    `json:"createdAt"`
	Attempts   []MCQAttempt `json:"attempts"`
}

// MCQAttempt records one student's pass at an exam.
type MCQAttempt struct {
	ID                string     `json:"id"`
	ExamID            string     `json:"examId"`
	StudentID         string     `json:"studentId,omitempty"`
	Answers           []int      `json:"answers"`
	Score             float64    `json:"score"`
	MaxScore          float64    `json:"maxScore"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	TimeSpent         int        `json:"timeSpent"`
	SkippedQuestions  []int      `json:"skippedQuestions"`
	ReportedQuestions []int      `json:"reportedQuestions"`
}

// Teacher is a dashboard account identified by an access code.
type Teacher struct {
	ID        int64
	Label     string
	CodeHash  string
	Active    bool
	CreatedAt time.Time
}

// AuthSession represents an authenticated teacher session.
type AuthSession struct {
	ID        string
	TeacherID int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type teacherCtxKey struct{}

// ContextWithTeacher stores an authenticated teacher in the request context.
func ContextWithTeacher(ctx context.Context, t *Teacher) context.Context {
	return context.WithValue(ctx, teacherCtxKey{}, t)
}

// TeacherFromContext retrieves the authenticated teacher from context, or nil.
func TeacherFromContext(ctx context.Context) *Teacher {
	t, _ := ctx.Value(teacherCtxKey{}).(*Teacher)
	return t
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr            string
	DefaultLanguage Language
	SecureCookies   bool
}

// AIConfig holds the LLM endpoint configuration, injected from flags or
// environment with hard-coded fallback defaults.
type AIConfig struct {
	Endpoint    string
	APIKey      string
	CustomerID  string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}
