package analytics

import (
	"sort"
	"time"

	"github.com/evalia/evalia/internal/model"
)

// ModuleStat is a count plus mean percentage for one group of evaluations.
type ModuleStat struct {
	Count    int     `json:"count"`
	AvgScore float64 `json:"avgScore"`
}

// DayStat is the activity of one calendar day.
type DayStat struct {
	Date     string  `json:"date"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avgScore"`
}

// DetailedStats is the dashboard's drill-down view.
type DetailedStats struct {
	ByModule struct {
		OpenQuestions   ModuleStat `json:"openQuestions"`
		CodeImprovement ModuleStat `json:"codeImprovement"`
		MCQ             ModuleStat `json:"mcq"`
	} `json:"byModule"`
	ByDifficulty struct {
		Easy   ModuleStat `json:"easy"`
		Medium ModuleStat `json:"medium"`
		Hard   ModuleStat `json:"hard"`
	} `json:"byDifficulty"`
	ByLanguage       LanguageDistribution `json:"byLanguage"`
	TimeDistribution []DayStat            `json:"timeDistribution"`
}

// DetailedStats recomputes the drill-down view from a full scan, with the
// time distribution covering the seven days up to now.
func (s *Service) DetailedStats() DetailedStats {
	return s.detailedStatsAt(time.Now())
}

func (s *Service) detailedStatsAt(now time.Time) DetailedStats {
	evals := s.store.ListEvaluations()
	questions := s.store.ListQuestions()

	var stats DetailedStats

	stats.ByModule.OpenQuestions = moduleStat(evals, model.ModuleOpenQuestions)
	stats.ByModule.CodeImprovement = moduleStat(evals, model.ModuleCodeImprovement)
	stats.ByModule.MCQ = moduleStat(evals, model.ModuleMCQ)

	stats.ByDifficulty.Easy = difficultyStat(evals, model.DifficultyEasy)
	stats.ByDifficulty.Medium = difficultyStat(evals, model.DifficultyMedium)
	stats.ByDifficulty.Hard = difficultyStat(evals, model.DifficultyHard)

	for _, q := range questions {
		switch q.Language {
		case model.LangFR:
			stats.ByLanguage.FR++
		case model.LangEN:
			stats.ByLanguage.EN++
		}
	}

	stats.TimeDistribution = timeDistribution(evals, now, 7)
	return stats
}

func moduleStat(evals []model.Evaluation, module model.ModuleType) ModuleStat {
	var st ModuleStat
	var total float64
	for _, e := range evals {
		if e.Type != module {
			continue
		}
		st.Count++
		total += e.Percentage()
	}
	if st.Count > 0 {
		st.AvgScore = total / float64(st.Count)
	}
	return st
}

// difficultyStat groups by the difficulty of the questions inside each
// evaluation: an evaluation contributes its percentage once per question of
// the given difficulty.
func difficultyStat(evals []model.Evaluation, difficulty model.Difficulty) ModuleStat {
	var st ModuleStat
	var total float64
	for _, e := range evals {
		for _, q := range e.Questions {
			if q.Difficulty != difficulty {
				continue
			}
			st.Count++
			total += e.Percentage()
		}
	}
	if st.Count > 0 {
		st.AvgScore = total / float64(st.Count)
	}
	return st
}

func timeDistribution(evals []model.Evaluation, now time.Time, days int) []DayStat {
	out := make([]DayStat, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		st := DayStat{Date: day}
		var total float64
		for _, e := range evals {
			if e.StartedAt.Format("2006-01-02") != day {
				continue
			}
			st.Count++
			total += e.Percentage()
		}
		if st.Count > 0 {
			st.AvgScore = total / float64(st.Count)
		}
		out = append(out, st)
	}
	return out
}

// StudentReport builds the downloadable per-student report, or false when
// the student has no evaluations.
func (s *Service) StudentReport(studentID string) (*model.StudentReport, bool) {
	var evals []model.Evaluation
	for _, e := range s.store.ListEvaluations() {
		if e.StudentID == studentID {
			evals = append(evals, e)
		}
	}
	if len(evals) == 0 {
		return nil, false
	}

	sort.Slice(evals, func(i, j int) bool { return evals[i].StartedAt.Before(evals[j].StartedAt) })

	report := model.StudentReport{
		StudentID:        studentID,
		TotalEvaluations: len(evals),
		FirstActivity:    evals[0].StartedAt,
		LastActivity:     evals[len(evals)-1].StartedAt,
	}

	var total float64
	for _, e := range evals {
		total += e.Percentage()
		report.Evaluations = append(report.Evaluations, model.EvaluationDigest{
			Date:      e.StartedAt,
			Type:      e.Type,
			Score:     e.Percentage(),
			Questions: len(e.Questions),
		})
	}
	report.AverageScore = total / float64(len(evals))

	for _, module := range []model.ModuleType{
		model.ModuleOpenQuestions, model.ModuleCodeImprovement, model.ModuleMCQ,
	} {
		var bd model.ModuleBreakdown
		bd.Module = module
		var moduleTotal float64
		for _, e := range evals {
			if e.Type != module {
				continue
			}
			pct := e.Percentage()
			moduleTotal += pct
			if bd.Count == 0 || pct > bd.BestScore {
				bd.BestScore = pct
			}
			if bd.Count == 0 || pct < bd.WorstScore {
				bd.WorstScore = pct
			}
			bd.Count++
		}
		if bd.Count == 0 {
			continue
		}
		bd.AverageScore = moduleTotal / float64(bd.Count)
		report.Modules = append(report.Modules, bd)
	}

	return &report, true
}
