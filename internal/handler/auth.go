package handler

import (
	"encoding/json"
	"net/http"

	"github.com/kokare-darshan/quickconnect/internal/audit"
	apperrors "github.com/kokare-darshan/quickconnect/internal/errors"
	"github.com/kokare-darshan/quickconnect/internal/middleware"
	"github.com/kokare-darshan/quickconnect/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		DeviceName string `json:"deviceName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "must be valid JSON"))
		return
	}

	grant, err := h.authService.Login(r.Context(), req.Username, req.Password, req.DeviceName)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeUnauthorized {
			audit.LogFromRequest(r, audit.Event{
				Type: audit.EventLoginFailure,
				Details: map[string]interface{}{
					"username": req.Username,
				},
			})
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventLoginSuccess,
		UserID:   grant.UserID,
		DeviceID: grant.DeviceID,
	})

	writeJSON(w, http.StatusOK, grant)
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth := middleware.GetAuth(r.Context())
	if auth == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	if err := h.authService.Logout(r.Context(), auth.SessionID); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventLogout,
		UserID: auth.User.ID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}
