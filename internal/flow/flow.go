// Package flow models the student journeys as explicit state machines with
// named states and transition guards, so a handler can reject an
// out-of-order step before any persistence side effect happens.
package flow

import (
	"fmt"
	"strings"

	"github.com/evalia/evalia/internal/model"
)

// State names a step in a student journey.
type State string

const (
	StateDraft     State = "draft"
	StateGenerated State = "generated"
	StateAnswering State = "answering"
	StateScoring   State = "scoring"
	StateCompleted State = "completed"
)

// TransitionError reports a guarded transition that was refused.
type TransitionError struct {
	From   State
	To     State
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s: %s", e.From, e.To, e.Reason)
}

// OpenQuestions drives the submit -> generate -> answer -> score journey.
type OpenQuestions struct {
	state     State
	questions []model.Question
	answers   []string
}

// NewOpenQuestions starts a journey in the draft state.
func NewOpenQuestions() *OpenQuestions {
	return &OpenQuestions{state: StateDraft}
}

// State returns the current state.
func (f *OpenQuestions) State() State { return f.state }

// Generate records the generated question set. Only valid from draft, and
// only with a non-empty set.
func (f *OpenQuestions) Generate(questions []model.Question) error {
	if f.state != StateDraft {
		return &TransitionError{From: f.state, To: StateGenerated, Reason: "questions already generated"}
	}
	if len(questions) == 0 {
		return &TransitionError{From: f.state, To: StateGenerated, Reason: "no questions to answer"}
	}
	f.questions = questions
	f.answers = make([]string, len(questions))
	f.state = StateGenerated
	return nil
}

// Answer records the student's answer for one question.
func (f *OpenQuestions) Answer(index int, text string) error {
	if f.state != StateGenerated && f.state != StateAnswering {
		return &TransitionError{From: f.state, To: StateAnswering, Reason: "journey is not accepting answers"}
	}
	if index < 0 || index >= len(f.questions) {
		return &TransitionError{From: f.state, To: StateAnswering,
			Reason: fmt.Sprintf("question index %d out of range", index)}
	}
	f.answers[index] = text
	f.state = StateAnswering
	return nil
}

// BeginScoring is guarded: every question must carry a non-empty answer.
func (f *OpenQuestions) BeginScoring() error {
	if f.state != StateAnswering {
		return &TransitionError{From: f.state, To: StateScoring, Reason: "no answers recorded"}
	}
	for i, a := range f.answers {
		if strings.TrimSpace(a) == "" {
			return &TransitionError{From: f.state, To: StateScoring,
				Reason: fmt.Sprintf("question %d has no answer", i+1)}
		}
	}
	f.state = StateScoring
	return nil
}

// Complete marks the journey finished. Terminal.
func (f *OpenQuestions) Complete() error {
	if f.state != StateScoring {
		return &TransitionError{From: f.state, To: StateCompleted, Reason: "scoring has not run"}
	}
	f.state = StateCompleted
	return nil
}

// Answers returns a copy of the recorded answers.
func (f *OpenQuestions) Answers() []string {
	out := make([]string, len(f.answers))
	copy(out, f.answers)
	return out
}
