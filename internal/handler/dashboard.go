package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/evalia/evalia/internal/i18n"
)

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.analytics.Summary())
}

func (h *Handler) handleStudents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.analytics.StudentPerformances())
}

func (h *Handler) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.analytics.StudentReport(chi.URLParam(r, "studentID"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.analytics.DetailedStats())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="evalia-export.json"`)
	respondJSON(w, http.StatusOK, h.repos.ExportAll())
}

func (h *Handler) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.repos.ClearAll(); err != nil {
		slog.Error("clear data failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": appI18n.T(r.Context(), "DataCleared"),
	})
}
