package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evalia/evalia/internal/model"
)

// Collection is a typed repository over one entity kind in the Store.
// Reads never fail outward: missing data is an empty result and malformed
// stored documents are skipped with a log line. Writes propagate errors.
type Collection[T any] struct {
	store  *Store
	name   string
	prefix string
	id     func(*T) *string
	stamp  func(*T)
}

// NewCollection creates a typed collection. id must return a pointer to the
// entity's identifier field; stamp, when non-nil, fills server-assigned
// defaults before a save.
func NewCollection[T any](s *Store, name, prefix string, id func(*T) *string, stamp func(*T)) *Collection[T] {
	return &Collection[T]{store: s, name: name, prefix: prefix, id: id, stamp: stamp}
}

// Save upserts the entity by identity and returns the resolved id. An empty
// id gets a generated collision-resistant one.
func (c *Collection[T]) Save(e *T) (string, error) {
	idp := c.id(e)
	if *idp == "" {
		*idp = c.prefix + "_" + uuid.NewString()
	}
	if c.stamp != nil {
		c.stamp(e)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal %s record: %w", c.name, err)
	}
	if err := c.store.Upsert(c.name, *idp, data); err != nil {
		return "", err
	}
	return *idp, nil
}

// Get returns the entity with the given id, or false when absent.
func (c *Collection[T]) Get(id string) (*T, bool) {
	raw, ok := c.store.Get(c.name, id)
	if !ok {
		return nil, false
	}
	var e T
	if err := json.Unmarshal(raw, &e); err != nil {
		slog.Warn("skipping undecodable record", "collection", c.name, "id", id, "error", err)
		return nil, false
	}
	return &e, true
}

// List returns all entities in insertion order.
func (c *Collection[T]) List() []T {
	raws := c.store.Read(c.name)
	items := make([]T, 0, len(raws))
	for _, raw := range raws {
		var e T
		if err := json.Unmarshal(raw, &e); err != nil {
			slog.Warn("skipping undecodable record", "collection", c.name, "error", err)
			continue
		}
		items = append(items, e)
	}
	return items
}

// Filter returns the entities matching keep, a full linear scan.
func (c *Collection[T]) Filter(keep func(T) bool) []T {
	var out []T
	for _, e := range c.List() {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// ReplaceAll overwrites the whole collection.
func (c *Collection[T]) ReplaceAll(items []T) error {
	docs := make([]json.RawMessage, 0, len(items))
	for i := range items {
		data, err := json.Marshal(items[i])
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", c.name, err)
		}
		docs = append(docs, data)
	}
	return c.store.ReplaceAll(c.name, docs)
}

// Clear removes every entity in the collection.
func (c *Collection[T]) Clear() error {
	return c.store.Clear(c.name)
}

// Collection names, one per entity kind.
const (
	ColCodes         = "codes"
	ColQuestions     = "questions"
	ColEvaluations   = "evaluations"
	ColImprovements  = "improvements"
	ColLatexProjects = "latex-projects"
	ColMCQExams      = "mcq-exams"
)

// KnownCollections lists every entity collection, in export order.
var KnownCollections = []string{
	ColCodes, ColQuestions, ColEvaluations, ColImprovements, ColLatexProjects, ColMCQExams,
}

// Repositories bundles the six typed collections.
type Repositories struct {
	Codes         *Collection[model.StudentCode]
	Questions     *Collection[model.Question]
	Evaluations   *Collection[model.Evaluation]
	Improvements  *Collection[model.CodeImprovement]
	LatexProjects *Collection[model.LaTeXProject]
	MCQExams      *Collection[model.MCQExam]

	store *Store
}

// NewRepositories wires the typed collections over a Store.
func NewRepositories(s *Store) *Repositories {
	return &Repositories{
		store: s,
		Codes: NewCollection(s, ColCodes, "code",
			func(c *model.StudentCode) *string { return &c.ID },
			func(c *model.StudentCode) {
				if c.UploadedAt.IsZero() {
					c.UploadedAt = time.Now()
				}
			}),
		Questions: NewCollection(s, ColQuestions, "q",
			func(q *model.Question) *string { return &q.ID }, nil),
		Evaluations: NewCollection(s, ColEvaluations, "eval",
			func(e *model.Evaluation) *string { return &e.ID },
			func(e *model.Evaluation) {
				if e.StartedAt.IsZero() {
					e.StartedAt = time.Now()
				}
			}),
		Improvements: NewCollection(s, ColImprovements, "imp",
			func(i *model.CodeImprovement) *string { return &i.ID }, nil),
		LatexProjects: NewCollection(s, ColLatexProjects, "latex",
			func(p *model.LaTeXProject) *string { return &p.ID },
			func(p *model.LaTeXProject) {
				if p.CreatedAt.IsZero() {
					p.CreatedAt = time.Now()
				}
			}),
		MCQExams: NewCollection(s, ColMCQExams, "exam",
			func(e *model.MCQExam) *string { return &e.ID },
			func(e *model.MCQExam) {
				if e.CreatedAt.IsZero() {
					e.CreatedAt = time.Now()
				}
			}),
	}
}

// QuestionsByCategory returns all stored questions with the given category.
func (r *Repositories) QuestionsByCategory(category string) []model.Question {
	return r.Questions.Filter(func(q model.Question) bool { return q.Category == category })
}

// EvaluationsByType returns all evaluations for one module.
func (r *Repositories) EvaluationsByType(t model.ModuleType) []model.Evaluation {
	return r.Evaluations.Filter(func(e model.Evaluation) bool { return e.Type == t })
}

// ImprovementsByCode returns all improvement reports for one submitted code.
func (r *Repositories) ImprovementsByCode(codeID string) []model.CodeImprovement {
	return r.Improvements.Filter(func(i model.CodeImprovement) bool { return i.CodeID == codeID })
}

// ClearAll wipes every entity collection. Auth tables are untouched.
func (r *Repositories) ClearAll() error {
	for _, name := range KnownCollections {
		if err := r.store.Clear(name); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	return nil
}

// ListEvaluations and ListQuestions satisfy the analytics store interface.

func (r *Repositories) ListEvaluations() []model.Evaluation {
	return r.Evaluations.List()
}

func (r *Repositories) ListQuestions() []model.Question {
	return r.Questions.List()
}
