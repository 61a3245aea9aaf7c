package handler

import (
	"net/http"
	"time"

	"github.com/kokare-darshan/quickconnect/internal/audit"
	apperrors "github.com/kokare-darshan/quickconnect/internal/errors"
	"github.com/kokare-darshan/quickconnect/internal/middleware"
	"github.com/kokare-darshan/quickconnect/internal/model"
	"github.com/kokare-darshan/quickconnect/internal/service"
)

type DeviceHandler struct {
	qcService *service.QuickConnectService
}

func NewDeviceHandler(qcService *service.QuickConnectService) *DeviceHandler {
	return &DeviceHandler{qcService: qcService}
}

func formatDevice(d model.AuthorizedDevice) map[string]any {
	return map[string]any{
		"id":           d.ID,
		"deviceId":     d.DeviceID,
		"deviceName":   d.DeviceName,
		"authorizedAt": d.AuthorizedAt.Format(time.RFC3339),
	}
}

// GET /devices
// Session: list the caller's authorized devices.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	auth := middleware.GetAuth(r.Context())
	if auth == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	pagination := ParsePagination(r)
	devices, total, err := h.qcService.ListDevices(r.Context(), auth.User.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(devices))
	for _, d := range devices {
		items = append(items, formatDevice(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": items,
		"total":   total,
		"limit":   pagination.Limit,
		"offset":  pagination.Offset,
	})
}

// DELETE /devices
// Session: revoke every device the caller ever authorized, including
// the sessions those devices hold.
func (h *DeviceHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	auth := middleware.GetAuth(r.Context())
	if auth == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	count, err := h.qcService.RevokeAll(r.Context(), auth.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventDevicesRevoke,
		UserID: auth.User.ID,
		Details: map[string]interface{}{
			"revoked": count,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"revoked": count,
	})
}
