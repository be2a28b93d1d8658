// Package auth exposes the passcode login endpoints.
package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eargai/earg-backend/internal/middleware"
	authservice "github.com/eargai/earg-backend/internal/service/auth"
	"github.com/eargai/earg-backend/pkg/utils"
)

// Handler serves /auth routes.
type Handler struct {
	authSvc *authservice.Service
}

func New(authSvc *authservice.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes mounts the auth endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/request-otp", h.handleRequestOTP)
	r.Post("/auth/verify-otp", h.handleVerifyOTP)
}

// handleRequestOTP issues a passcode. The response is 200 {ok:true} whether
// or not the email has an account, so existence never leaks.
func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(payload.Email))
	if email == "" {
		utils.RespondError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.authSvc.Issue(r.Context(), email); err != nil {
		log.Printf("[auth] failed to issue passcode: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to issue passcode")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleVerifyOTP consumes the passcode and establishes the session cookie.
func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(payload.Email))
	code := strings.TrimSpace(payload.Code)

	token, err := h.authSvc.Verify(r.Context(), email, code)
	if errors.Is(err, authservice.ErrInvalidPasscode) {
		utils.RespondError(w, http.StatusUnauthorized, "invalid or expired passcode")
		return
	}
	if err != nil {
		log.Printf("[auth] failed to verify passcode: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.authSvc.SessionTTL()),
	})
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
