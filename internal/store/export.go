package store

import (
	"time"

	"github.com/evalia/evalia/internal/model"
)

// ExportAll builds the full data bundle: every collection in one structure,
// as downloaded from the teacher dashboard or the export subcommand.
func (r *Repositories) ExportAll() model.DataExport {
	return model.DataExport{
		Codes:         r.Codes.List(),
		Questions:     r.Questions.List(),
		Evaluations:   r.Evaluations.List(),
		Improvements:  r.Improvements.List(),
		LatexProjects: r.LatexProjects.List(),
		MCQExams:      r.MCQExams.List(),
		ExportedAt:    time.Now(),
	}
}
