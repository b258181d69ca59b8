package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evalia/evalia/internal/model"
)

func (h *Handler) handleCreateCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content      string `json:"content"`
		Language     string `json:"language"`
		Filename     string `json:"filename"`
		ProjectSpecs string `json:"projectSpecs"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, r, http.StatusBadRequest, "ContentRequired")
		return
	}
	if req.Filename == "" {
		respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	code := model.StudentCode{
		Content:      req.Content,
		Language:     req.Language,
		Filename:     req.Filename,
		ProjectSpecs: req.ProjectSpecs,
	}
	if _, err := h.repos.Codes.Save(&code); err != nil {
		slog.Error("save code failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	respondJSON(w, http.StatusCreated, code)
}

func (h *Handler) handleListCodes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.repos.Codes.List())
}

func (h *Handler) handleGetCode(w http.ResponseWriter, r *http.Request) {
	code, ok := h.repos.Codes.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	respondJSON(w, http.StatusOK, code)
}

// handleReadData serves a whole collection as a raw JSON array. A missing or
// unknown collection is an empty array, not an error; only a failing store
// surfaces as 500, still with an array body so clients can keep rendering.
func (h *Handler) handleReadData(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	docs, err := h.store.ReadChecked(collection)
	if err != nil {
		slog.Error("read collection failed", "collection", collection, "error", err)
		respondJSON(w, http.StatusInternalServerError, []json.RawMessage{})
		return
	}
	if docs == nil {
		docs = []json.RawMessage{}
	}
	respondJSON(w, http.StatusOK, docs)
}

// handleWriteData overwrites a whole collection with the posted JSON array.
func (h *Handler) handleWriteData(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	var docs []json.RawMessage
	if !decodeJSON(w, r, &docs) {
		return
	}
	if err := h.store.ReplaceAll(collection, docs); err != nil {
		slog.Error("replace collection failed", "collection", collection, "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
