package flow

import (
	"fmt"
	"sort"
	"time"

	"github.com/evalia/evalia/internal/model"
)

// MCQ attempt states.
const (
	StateReady      State = "ready"
	StateInProgress State = "in-progress"
)

const unanswered = -1

// MCQAttempt drives one student's pass at an exam. Scoring is local: one
// point per question whose selected option matches correctAnswer; the LLM
// is never involved.
type MCQAttempt struct {
	state     State
	exam      model.MCQExam
	studentID string
	answers   []int
	skipped   map[int]bool
	reported  map[int]bool
	startedAt time.Time
}

// NewMCQAttempt prepares an attempt in the ready state.
func NewMCQAttempt(exam model.MCQExam, studentID string) *MCQAttempt {
	answers := make([]int, len(exam.Questions))
	for i := range answers {
		answers[i] = unanswered
	}
	return &MCQAttempt{
		state:     StateReady,
		exam:      exam,
		studentID: studentID,
		answers:   answers,
		skipped:   make(map[int]bool),
		reported:  make(map[int]bool),
	}
}

// State returns the current state.
func (f *MCQAttempt) State() State { return f.state }

// Start begins the attempt clock.
func (f *MCQAttempt) Start(now time.Time) error {
	if f.state != StateReady {
		return &TransitionError{From: f.state, To: StateInProgress, Reason: "attempt already started"}
	}
	if len(f.exam.Questions) == 0 {
		return &TransitionError{From: f.state, To: StateInProgress, Reason: "exam has no questions"}
	}
	f.startedAt = now
	f.state = StateInProgress
	return nil
}

// Select records the chosen option for a question and clears any skip mark.
func (f *MCQAttempt) Select(question, option int) error {
	if f.state != StateInProgress {
		return &TransitionError{From: f.state, To: StateInProgress, Reason: "attempt is not running"}
	}
	if question < 0 || question >= len(f.exam.Questions) {
		return &TransitionError{From: f.state, To: StateInProgress,
			Reason: fmt.Sprintf("question index %d out of range", question)}
	}
	if option < 0 || option >= len(f.exam.Questions[question].Options) {
		return &TransitionError{From: f.state, To: StateInProgress,
			Reason: fmt.Sprintf("option %d out of range for question %d", option, question)}
	}
	f.answers[question] = option
	delete(f.skipped, question)
	return nil
}

// Skip marks a question as deliberately unanswered.
func (f *MCQAttempt) Skip(question int) error {
	if f.state != StateInProgress {
		return &TransitionError{From: f.state, To: StateInProgress, Reason: "attempt is not running"}
	}
	if question < 0 || question >= len(f.exam.Questions) {
		return &TransitionError{From: f.state, To: StateInProgress,
			Reason: fmt.Sprintf("question index %d out of range", question)}
	}
	f.answers[question] = unanswered
	f.skipped[question] = true
	return nil
}

// Report flags a question as problematic without affecting scoring.
func (f *MCQAttempt) Report(question int) error {
	if f.state != StateInProgress {
		return &TransitionError{From: f.state, To: StateInProgress, Reason: "attempt is not running"}
	}
	if question < 0 || question >= len(f.exam.Questions) {
		return &TransitionError{From: f.state, To: StateInProgress,
			Reason: fmt.Sprintf("question index %d out of range", question)}
	}
	f.reported[question] = true
	return nil
}

// Finish is guarded: every question must be either answered or skipped. It
// scores the attempt and returns the completed record.
func (f *MCQAttempt) Finish(now time.Time) (model.MCQAttempt, error) {
	if f.state != StateInProgress {
		return model.MCQAttempt{}, &TransitionError{From: f.state, To: StateCompleted, Reason: "attempt is not running"}
	}
	for i, a := range f.answers {
		if a == unanswered && !f.skipped[i] {
			return model.MCQAttempt{}, &TransitionError{From: f.state, To: StateCompleted,
				Reason: fmt.Sprintf("question %d neither answered nor skipped", i+1)}
		}
	}

	var score float64
	for i, q := range f.exam.Questions {
		if q.CorrectAnswer != nil && f.answers[i] == *q.CorrectAnswer {
			score++
		}
	}

	completed := now
	attempt := model.MCQAttempt{
		ExamID:            f.exam.ID,
		StudentID:         f.studentID,
		Answers:           append([]int(nil), f.answers...),
		Score:             score,
		MaxScore:          float64(len(f.exam.Questions)),
		StartedAt:         f.startedAt,
		CompletedAt:       &completed,
		TimeSpent:         int(now.Sub(f.startedAt).Seconds()),
		SkippedQuestions:  sortedKeys(f.skipped),
		ReportedQuestions: sortedKeys(f.reported),
	}
	f.state = StateCompleted
	return attempt, nil
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
