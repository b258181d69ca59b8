package model

import "time"

// DataExport is the top-level JSON structure for a full data export:
// every collection in one bundle, as served by the teacher dashboard.
type DataExport struct {
	Codes         []StudentCode     `json:"codes"`
	Questions     []Question        `json:"questions"`
	Evaluations   []Evaluation      `json:"evaluations"`
	Improvements  []CodeImprovement `json:"improvements"`
	LatexProjects []LaTeXProject    `json:"latexProjects"`
	MCQExams      []MCQExam         `json:"mcqExams"`
	ExportedAt    time.Time         `json:"exportedAt"`
}

// StudentReport is the per-student breakdown used by the dashboard's
// downloadable report.
type StudentReport struct {
	StudentID        string             `json:"studentId"`
	TotalEvaluations int                `json:"totalEvaluations"`
	AverageScore     float64            `json:"averageScore"`
	FirstActivity    time.Time          `json:"firstActivity"`
	LastActivity     time.Time          `json:"lastActivity"`
	Modules          []ModuleBreakdown  `json:"modules"`
	Evaluations      []EvaluationDigest `json:"evaluations"`
}

// ModuleBreakdown summarizes one student's results on a single module.
type ModuleBreakdown struct {
	Module       ModuleType `json:"module"`
	Count        int        `json:"count"`
	AverageScore float64    `json:"averageScore"`
	BestScore    float64    `json:"bestScore"`
	WorstScore   float64    `json:"worstScore"`
}

// EvaluationDigest is a reduced evaluation row for reports.
type EvaluationDigest struct {
	Date      time.Time  `json:"date"`
	Type      ModuleType `json:"type"`
	Score     float64    `json:"score"`
	Questions int        `json:"questions"`
}
