package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kokare-darshan/quickconnect/internal/audit"
	apperrors "github.com/kokare-darshan/quickconnect/internal/errors"
	"github.com/kokare-darshan/quickconnect/internal/middleware"
	"github.com/kokare-darshan/quickconnect/internal/model"
	"github.com/kokare-darshan/quickconnect/internal/service"
	"github.com/kokare-darshan/quickconnect/internal/util"
)

type QuickConnectHandler struct {
	qcService *service.QuickConnectService
}

func NewQuickConnectHandler(qcService *service.QuickConnectService) *QuickConnectHandler {
	return &QuickConnectHandler{qcService: qcService}
}

// GET /quickconnect/status
// Anonymous: a device asks whether pairing is possible right now.
func (h *QuickConnectHandler) Status(w http.ResponseWriter, r *http.Request) {
	state := h.qcService.State(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"state": state,
	})
}

// POST /quickconnect/initiate
// Anonymous: a device starts a pairing attempt and receives the secret
// it will poll with plus the code it should display.
func (h *QuickConnectHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FriendlyName string `json:"friendlyName"`
	}
	if r.Body != nil {
		// The body is optional; a bare POST is a nameless device.
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.qcService.Initiate(r.Context(), req.FriendlyName)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type: audit.EventPairingInitiate,
		Details: map[string]interface{}{
			"code": util.MaskCode(result.Code),
		},
	})

	writeJSON(w, http.StatusOK, result)
}

// GET /quickconnect/connect?secret=...
// Anonymous: the polling endpoint. The first poll after authorization
// collects the session grant; later polls get 404.
func (h *QuickConnectHandler) Connect(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	if secret == "" {
		writeError(w, apperrors.MissingRequired("secret"))
		return
	}

	status, err := h.qcService.CheckStatus(r.Context(), secret)
	if err != nil {
		writeError(w, err)
		return
	}

	if status.Resolved {
		audit.LogFromRequest(r, audit.Event{
			Type:   audit.EventPairingCollect,
			UserID: status.Authentication.UserID,
			Details: map[string]interface{}{
				"code": util.MaskCode(status.Code),
			},
		})
	}

	writeJSON(w, http.StatusOK, status)
}

// POST /quickconnect/activate
// Session: any signed-in user opens an acceptance window.
func (h *QuickConnectHandler) Activate(w http.ResponseWriter, r *http.Request) {
	auth := middleware.GetAuth(r.Context())
	if auth == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	if err := h.qcService.Activate(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventActivate,
		UserID: auth.User.ID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"state": h.qcService.State(r.Context()),
	})
}

// POST /quickconnect/availability
// Admin: force the feature into a given state.
func (h *QuickConnectHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	auth := middleware.GetAuth(r.Context())
	if auth == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req struct {
		State model.QuickConnectState `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "must be valid JSON"))
		return
	}

	if err := h.qcService.SetState(r.Context(), req.State); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventStateChange,
		UserID: auth.User.ID,
		Details: map[string]interface{}{
			"state": string(req.State),
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"state": h.qcService.State(r.Context()),
	})
}

// POST /quickconnect/authorize?code=...
// Session: the signed-in user approves the code shown on the new
// device. The response body is a bare boolean to keep clients simple.
func (h *QuickConnectHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	auth := middleware.GetAuth(r.Context())
	if auth == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	code := r.URL.Query().Get("code")

	ok, err := h.qcService.Authorize(r.Context(), *auth, code)
	if err != nil {
		writeError(w, err)
		return
	}

	if ok {
		audit.LogFromRequest(r, audit.Event{
			Type:     audit.EventPairingAuthorize,
			UserID:   auth.User.ID,
			DeviceID: auth.DeviceID,
			Details: map[string]interface{}{
				"code": util.MaskCode(code),
			},
		})
	} else {
		audit.LogFromRequest(r, audit.Event{
			Type:   audit.EventPairingAuthFailure,
			UserID: auth.User.ID,
			Details: map[string]interface{}{
				"code": util.MaskCode(code),
			},
		})
		log.Warn().Str("userId", auth.User.ID).Msg("authorization of unknown pairing code")
	}

	writeJSON(w, http.StatusOK, ok)
}
