package analytics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/evalia/evalia/internal/model"
)

type fakeStore struct {
	evals     []model.Evaluation
	questions []model.Question
}

func (f *fakeStore) ListEvaluations() []model.Evaluation { return f.evals }
func (f *fakeStore) ListQuestions() []model.Question     { return f.questions }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummaryEmpty(t *testing.T) {
	s := New(&fakeStore{})
	sum := s.Summary()

	if sum.TotalEvaluations != 0 {
		t.Errorf("expected 0 evaluations, got %d", sum.TotalEvaluations)
	}
	if sum.AverageScore != 0 {
		t.Errorf("expected average 0 with no data, got %v", sum.AverageScore)
	}
	if len(sum.RecentActivity) != 0 {
		t.Errorf("expected empty activity, got %d rows", len(sum.RecentActivity))
	}
}

func TestSummaryAverageScore(t *testing.T) {
	// 5/10 = 50%, 8/10 = 80%: the mean of percentages is 65, not 13/20.
	s := New(&fakeStore{evals: []model.Evaluation{
		{Type: model.ModuleOpenQuestions, Score: 5, MaxScore: 10},
		{Type: model.ModuleOpenQuestions, Score: 8, MaxScore: 10},
	}})
	sum := s.Summary()

	if !almostEqual(sum.AverageScore, 65) {
		t.Errorf("expected average 65, got %v", sum.AverageScore)
	}
	if sum.TotalEvaluations != 2 {
		t.Errorf("expected 2 evaluations, got %d", sum.TotalEvaluations)
	}
}

func TestSummaryZeroMaxScore(t *testing.T) {
	// An evaluation with maxScore 0 contributes 0, never NaN.
	s := New(&fakeStore{evals: []model.Evaluation{
		{Type: model.ModuleMCQ, Score: 0, MaxScore: 0},
	}})
	sum := s.Summary()

	if math.IsNaN(sum.AverageScore) {
		t.Fatal("average must not be NaN")
	}
	if sum.AverageScore != 0 {
		t.Errorf("expected average 0, got %v", sum.AverageScore)
	}
}

func TestSummaryModuleUsage(t *testing.T) {
	s := New(&fakeStore{evals: []model.Evaluation{
		{Type: model.ModuleOpenQuestions, MaxScore: 10},
		{Type: model.ModuleOpenQuestions, MaxScore: 10},
		{Type: model.ModuleCodeImprovement, MaxScore: 100},
		{Type: model.ModuleMCQ, MaxScore: 5},
	}})
	usage := s.Summary().ModuleUsage

	if usage.OpenQuestions != 2 || usage.CodeImprovement != 1 || usage.MCQGenerator != 1 {
		t.Errorf("unexpected module usage: %+v", usage)
	}
}

func TestSummaryDistributions(t *testing.T) {
	s := New(&fakeStore{questions: []model.Question{
		{Language: model.LangFR, Difficulty: model.DifficultyEasy},
		{Language: model.LangFR, Difficulty: model.DifficultyMedium},
		{Language: model.LangEN, Difficulty: model.DifficultyMedium},
		{Language: model.LangFR, Difficulty: model.DifficultyHard},
	}})
	sum := s.Summary()

	if sum.LanguageDistribution.FR != 3 || sum.LanguageDistribution.EN != 1 {
		t.Errorf("unexpected language distribution: %+v", sum.LanguageDistribution)
	}
	d := sum.DifficultyDistribution
	if d.Easy != 1 || d.Medium != 2 || d.Hard != 1 {
		t.Errorf("unexpected difficulty distribution: %+v", d)
	}
}

func TestRecentActivityCapsAtTen(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var evals []model.Evaluation
	for i := 0; i < 15; i++ {
		evals = append(evals, model.Evaluation{
			Type:      model.ModuleMCQ,
			Score:     float64(i),
			MaxScore:  20,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	s := New(&fakeStore{evals: evals})
	activity := s.Summary().RecentActivity

	if len(activity) != 10 {
		t.Fatalf("expected 10 activity rows, got %d", len(activity))
	}
	// Newest first: the last created evaluation (score 14/20 = 70%) leads.
	if !activity[0].Date.Equal(base.Add(14 * time.Hour)) {
		t.Errorf("expected newest evaluation first, got %v", activity[0].Date)
	}
	if !almostEqual(activity[0].Score, 70) {
		t.Errorf("expected score 70, got %v", activity[0].Score)
	}
	for i := 1; i < len(activity); i++ {
		if activity[i].Date.After(activity[i-1].Date) {
			t.Fatalf("activity not sorted descending at row %d", i)
		}
	}
}

func TestStudentPerformances(t *testing.T) {
	s := New(&fakeStore{evals: []model.Evaluation{
		// alice: open-questions strength (90, 85), mcq weakness (50).
		{StudentID: "alice", Type: model.ModuleOpenQuestions, Score: 9, MaxScore: 10},
		{StudentID: "alice", Type: model.ModuleOpenQuestions, Score: 8.5, MaxScore: 10},
		{StudentID: "alice", Type: model.ModuleMCQ, Score: 5, MaxScore: 10},
		// bob: a single middling result, neither strength nor weakness.
		{StudentID: "bob", Type: model.ModuleCodeImprovement, Score: 70, MaxScore: 100},
		// Anonymous evaluations are excluded from the per-student view.
		{StudentID: "", Type: model.ModuleMCQ, Score: 1, MaxScore: 10},
	}})

	perfs := s.StudentPerformances()
	if len(perfs) != 2 {
		t.Fatalf("expected 2 students, got %d", len(perfs))
	}

	// alice averages 75, bob 70: alice first.
	if perfs[0].StudentID != "alice" || perfs[1].StudentID != "bob" {
		t.Fatalf("unexpected order: %s, %s", perfs[0].StudentID, perfs[1].StudentID)
	}
	alice := perfs[0]
	if alice.TotalEvaluations != 3 {
		t.Errorf("expected 3 evaluations for alice, got %d", alice.TotalEvaluations)
	}
	if !almostEqual(alice.AverageScore, 75) {
		t.Errorf("expected alice average 75, got %v", alice.AverageScore)
	}
	if len(alice.Strengths) != 1 || alice.Strengths[0] != model.ModuleOpenQuestions {
		t.Errorf("expected open-questions strength, got %v", alice.Strengths)
	}
	if len(alice.Weaknesses) != 1 || alice.Weaknesses[0] != model.ModuleMCQ {
		t.Errorf("expected mcq weakness, got %v", alice.Weaknesses)
	}

	bob := perfs[1]
	if len(bob.Strengths) != 0 || len(bob.Weaknesses) != 0 {
		t.Errorf("expected bob unclassified, got strengths %v weaknesses %v", bob.Strengths, bob.Weaknesses)
	}
}

func TestStudentPerformancesTieBreak(t *testing.T) {
	s := New(&fakeStore{evals: []model.Evaluation{
		{StudentID: "zoe", Type: model.ModuleMCQ, Score: 7, MaxScore: 10},
		{StudentID: "ana", Type: model.ModuleMCQ, Score: 7, MaxScore: 10},
	}})
	perfs := s.StudentPerformances()
	if len(perfs) != 2 || perfs[0].StudentID != "ana" {
		t.Fatalf("expected deterministic id order on equal scores, got %+v", perfs)
	}
}

func TestDetailedStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	s := New(&fakeStore{
		evals: []model.Evaluation{
			{
				Type: model.ModuleOpenQuestions, Score: 6, MaxScore: 10,
				StartedAt: now.AddDate(0, 0, -1),
				Questions: []model.Question{
					{Difficulty: model.DifficultyEasy},
					{Difficulty: model.DifficultyHard},
				},
			},
			{
				Type: model.ModuleOpenQuestions, Score: 10, MaxScore: 10,
				StartedAt: now,
				Questions: []model.Question{{Difficulty: model.DifficultyEasy}},
			},
			// Outside the seven-day window.
			{Type: model.ModuleMCQ, Score: 2, MaxScore: 4, StartedAt: now.AddDate(0, 0, -9)},
		},
		questions: []model.Question{{Language: model.LangFR}},
	})

	stats := s.detailedStatsAt(now)

	if stats.ByModule.OpenQuestions.Count != 2 {
		t.Errorf("expected 2 open-questions evaluations, got %d", stats.ByModule.OpenQuestions.Count)
	}
	if !almostEqual(stats.ByModule.OpenQuestions.AvgScore, 80) {
		t.Errorf("expected open-questions average 80, got %v", stats.ByModule.OpenQuestions.AvgScore)
	}
	if stats.ByModule.MCQ.Count != 1 {
		t.Errorf("expected 1 mcq evaluation, got %d", stats.ByModule.MCQ.Count)
	}

	// Easy appears in both evaluations (60% and 100%), hard only in the first.
	if stats.ByDifficulty.Easy.Count != 2 || !almostEqual(stats.ByDifficulty.Easy.AvgScore, 80) {
		t.Errorf("unexpected easy stat: %+v", stats.ByDifficulty.Easy)
	}
	if stats.ByDifficulty.Hard.Count != 1 || !almostEqual(stats.ByDifficulty.Hard.AvgScore, 60) {
		t.Errorf("unexpected hard stat: %+v", stats.ByDifficulty.Hard)
	}

	if len(stats.TimeDistribution) != 7 {
		t.Fatalf("expected 7 day rows, got %d", len(stats.TimeDistribution))
	}
	last := stats.TimeDistribution[6]
	if last.Date != "2026-03-10" || last.Count != 1 || !almostEqual(last.AvgScore, 100) {
		t.Errorf("unexpected final day: %+v", last)
	}
	prev := stats.TimeDistribution[5]
	if prev.Date != "2026-03-09" || prev.Count != 1 || !almostEqual(prev.AvgScore, 60) {
		t.Errorf("unexpected previous day: %+v", prev)
	}
	// The nine-day-old evaluation must not appear in any bucket.
	var total int
	for _, d := range stats.TimeDistribution {
		total += d.Count
	}
	if total != 2 {
		t.Errorf("expected 2 evaluations inside the window, got %d", total)
	}
}

func TestStudentReport(t *testing.T) {
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	s := New(&fakeStore{evals: []model.Evaluation{
		{StudentID: "alice", Type: model.ModuleOpenQuestions, Score: 6, MaxScore: 10, StartedAt: base},
		{StudentID: "alice", Type: model.ModuleOpenQuestions, Score: 9, MaxScore: 10, StartedAt: base.AddDate(0, 0, 2)},
		{StudentID: "alice", Type: model.ModuleMCQ, Score: 4, MaxScore: 5, StartedAt: base.AddDate(0, 0, 1)},
		{StudentID: "bob", Type: model.ModuleMCQ, Score: 1, MaxScore: 5, StartedAt: base},
	}})

	report, ok := s.StudentReport("alice")
	if !ok {
		t.Fatal("expected a report for alice")
	}
	if report.TotalEvaluations != 3 {
		t.Errorf("expected 3 evaluations, got %d", report.TotalEvaluations)
	}
	if !report.FirstActivity.Equal(base) {
		t.Errorf("unexpected first activity %v", report.FirstActivity)
	}
	if !report.LastActivity.Equal(base.AddDate(0, 0, 2)) {
		t.Errorf("unexpected last activity %v", report.LastActivity)
	}
	if len(report.Modules) != 2 {
		t.Fatalf("expected 2 module breakdowns, got %d", len(report.Modules))
	}
	oq := report.Modules[0]
	if oq.Module != model.ModuleOpenQuestions || oq.Count != 2 {
		t.Fatalf("unexpected first breakdown: %+v", oq)
	}
	if !almostEqual(oq.BestScore, 90) || !almostEqual(oq.WorstScore, 60) {
		t.Errorf("unexpected best/worst: %v/%v", oq.BestScore, oq.WorstScore)
	}

	if _, ok := s.StudentReport("nobody"); ok {
		t.Error("expected no report for unknown student")
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		xs   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{4}, 4},
		{[]float64{2, 4, 6}, 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.xs), func(t *testing.T) {
			if got := mean(tt.xs); !almostEqual(got, tt.want) {
				t.Errorf("mean(%v) = %v, want %v", tt.xs, got, tt.want)
			}
		})
	}
}
