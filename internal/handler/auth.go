package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/evalia/evalia/internal/i18n"
	"github.com/evalia/evalia/internal/model"
)

const sessionCookieName = "evalia_session"

// requireTeacher is middleware that checks for a valid teacher session cookie.
func (h *Handler) requireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		sess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if sess == nil {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		teacher, err := h.store.GetTeacherByID(sess.TeacherID)
		if err != nil || teacher == nil || !teacher.Active {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := model.ContextWithTeacher(r.Context(), teacher)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleLogin verifies an access code against the registered teacher accounts
// and opens a session. Codes are never stored in clear; each submitted code
// is compared against every active account's bcrypt hash.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessCode string `json:"accessCode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AccessCode == "" {
		respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	teachers, err := h.store.ListTeachers()
	if err != nil {
		slog.Error("failed to list teachers", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}

	var matched *model.Teacher
	for i := range teachers {
		if !teachers[i].Active {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(teachers[i].CodeHash), []byte(req.AccessCode)) == nil {
			matched = &teachers[i]
			break
		}
	}
	if matched == nil {
		respondError(w, r, http.StatusUnauthorized, "InvalidAccessCode")
		return
	}

	token, err := h.store.CreateAuthSession(matched.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"teacher":       matched.Label,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	respondJSON(w, http.StatusOK, map[string]string{
		"message": appI18n.T(r.Context(), "LoggedOut"),
	})
}
