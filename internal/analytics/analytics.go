// Package analytics computes dashboard statistics over stored evaluations
// and questions. Every call recomputes from a full scan; nothing is cached.
package analytics

import (
	"sort"
	"time"

	"github.com/evalia/evalia/internal/model"
)

// Store is the read surface the aggregator needs. *store.Repositories
// implements it; tests substitute fakes.
type Store interface {
	ListEvaluations() []model.Evaluation
	ListQuestions() []model.Question
}

// Service computes aggregate statistics.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// ModuleUsage counts evaluations per module.
type ModuleUsage struct {
	OpenQuestions   int `json:"openQuestions"`
	CodeImprovement int `json:"codeImprovement"`
	MCQGenerator    int `json:"mcqGenerator"`
}

// LanguageDistribution counts stored questions per content language.
type LanguageDistribution struct {
	FR int `json:"fr"`
	EN int `json:"en"`
}

// DifficultyDistribution counts stored questions per difficulty.
type DifficultyDistribution struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Activity is one row of the recent-activity feed.
type Activity struct {
	Date  time.Time        `json:"date"`
	Type  model.ModuleType `json:"type"`
	Score float64          `json:"score"`
}

// Summary is the dashboard's top-level snapshot.
type Summary struct {
	TotalEvaluations       int                    `json:"totalEvaluations"`
	AverageScore           float64                `json:"averageScore"`
	ModuleUsage            ModuleUsage            `json:"moduleUsage"`
	LanguageDistribution   LanguageDistribution   `json:"languageDistribution"`
	DifficultyDistribution DifficultyDistribution `json:"difficultyDistribution"`
	RecentActivity         []Activity             `json:"recentActivity"`
}

// Summary scans all evaluations and questions and builds the snapshot.
// The average is the mean of per-evaluation percentages, 0 with no data.
func (s *Service) Summary() Summary {
	evals := s.store.ListEvaluations()
	questions := s.store.ListQuestions()

	sum := Summary{TotalEvaluations: len(evals)}

	var total float64
	for _, e := range evals {
		total += e.Percentage()
		switch e.Type {
		case model.ModuleOpenQuestions:
			sum.ModuleUsage.OpenQuestions++
		case model.ModuleCodeImprovement:
			sum.ModuleUsage.CodeImprovement++
		case model.ModuleMCQ:
			sum.ModuleUsage.MCQGenerator++
		}
	}
	if len(evals) > 0 {
		sum.AverageScore = total / float64(len(evals))
	}

	for _, q := range questions {
		switch q.Language {
		case model.LangFR:
			sum.LanguageDistribution.FR++
		case model.LangEN:
			sum.LanguageDistribution.EN++
		}
		switch q.Difficulty {
		case model.DifficultyEasy:
			sum.DifficultyDistribution.Easy++
		case model.DifficultyMedium:
			sum.DifficultyDistribution.Medium++
		case model.DifficultyHard:
			sum.DifficultyDistribution.Hard++
		}
	}

	sum.RecentActivity = recentActivity(evals, 10)
	return sum
}

func recentActivity(evals []model.Evaluation, n int) []Activity {
	sorted := make([]model.Evaluation, len(evals))
	copy(sorted, evals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	activity := make([]Activity, 0, len(sorted))
	for _, e := range sorted {
		activity = append(activity, Activity{
			Date:  e.StartedAt,
			Type:  e.Type,
			Score: e.Percentage(),
		})
	}
	return activity
}

// Strength and weakness thresholds on a student's per-module mean percentage.
const (
	strengthThreshold = 80
	weaknessThreshold = 60
)

// StudentPerformance summarizes one student's results across all modules.
type StudentPerformance struct {
	StudentID        string             `json:"studentId"`
	TotalEvaluations int                `json:"totalEvaluations"`
	AverageScore     float64            `json:"averageScore"`
	LastActivity     time.Time          `json:"lastActivity"`
	Strengths        []model.ModuleType `json:"strengths"`
	Weaknesses       []model.ModuleType `json:"weaknesses"`
}

// StudentPerformances groups evaluations by student (records without a
// studentId are excluded) and classifies each module as a strength when the
// student's mean percentage on it is >= 80, a weakness when < 60. The result
// is sorted by mean score descending.
func (s *Service) StudentPerformances() []StudentPerformance {
	byStudent := make(map[string][]model.Evaluation)
	for _, e := range s.store.ListEvaluations() {
		if e.StudentID == "" {
			continue
		}
		byStudent[e.StudentID] = append(byStudent[e.StudentID], e)
	}

	perfs := make([]StudentPerformance, 0, len(byStudent))
	for studentID, evals := range byStudent {
		p := StudentPerformance{
			StudentID:        studentID,
			TotalEvaluations: len(evals),
		}
		var total float64
		moduleScores := make(map[model.ModuleType][]float64)
		for _, e := range evals {
			pct := e.Percentage()
			total += pct
			moduleScores[e.Type] = append(moduleScores[e.Type], pct)
			if e.StartedAt.After(p.LastActivity) {
				p.LastActivity = e.StartedAt
			}
		}
		p.AverageScore = total / float64(len(evals))

		for _, module := range []model.ModuleType{
			model.ModuleOpenQuestions, model.ModuleCodeImprovement, model.ModuleMCQ,
		} {
			scores := moduleScores[module]
			if len(scores) == 0 {
				continue
			}
			avg := mean(scores)
			switch {
			case avg >= strengthThreshold:
				p.Strengths = append(p.Strengths, module)
			case avg < weaknessThreshold:
				p.Weaknesses = append(p.Weaknesses, module)
			}
		}
		perfs = append(perfs, p)
	}

	sort.Slice(perfs, func(i, j int) bool {
		if perfs[i].AverageScore != perfs[j].AverageScore {
			return perfs[i].AverageScore > perfs[j].AverageScore
		}
		return perfs[i].StudentID < perfs[j].StudentID
	})
	return perfs
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var total float64
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}
