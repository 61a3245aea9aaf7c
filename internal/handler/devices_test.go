package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokare-darshan/quickconnect/internal/model"
	"github.com/kokare-darshan/quickconnect/internal/service"
)

func newDeviceFixture() (*DeviceHandler, *service.QuickConnectService, *stubDeviceRepo, *stubSessionRepo) {
	deviceRepo := &stubDeviceRepo{}
	sessionRepo := &stubSessionRepo{}
	svc := service.NewQuickConnectService(deviceRepo, sessionRepo, 5*time.Minute, 5*time.Minute, 720*time.Hour)
	return NewDeviceHandler(svc), svc, deviceRepo, sessionRepo
}

func TestListDevicesEndpoint(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		h, _, _, _ := newDeviceFixture()

		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/devices", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty list for a new user", func(t *testing.T) {
		h, _, _, _ := newDeviceFixture()

		req := withAuth(httptest.NewRequest(http.MethodGet, "/devices", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Empty(t, body["devices"])
		assert.Equal(t, float64(0), body["total"])
	})

	t.Run("lists only the caller's devices", func(t *testing.T) {
		h, _, deviceRepo, _ := newDeviceFixture()
		ctx := context.Background()
		deviceRepo.Record(ctx, model.RecordAuthorizedDeviceParams{UserID: "u1", DeviceID: "d1", DeviceName: "TV"})
		deviceRepo.Record(ctx, model.RecordAuthorizedDeviceParams{UserID: "u1", DeviceID: "d2", DeviceName: "Tablet"})
		deviceRepo.Record(ctx, model.RecordAuthorizedDeviceParams{UserID: "u2", DeviceID: "d3", DeviceName: "Phone"})

		req := withAuth(httptest.NewRequest(http.MethodGet, "/devices", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		devices := body["devices"].([]any)
		assert.Len(t, devices, 2)
		assert.Equal(t, float64(2), body["total"])

		first := devices[0].(map[string]any)
		assert.Equal(t, "d1", first["deviceId"])
		assert.Equal(t, "TV", first["deviceName"])
	})

	t.Run("honors pagination defaults", func(t *testing.T) {
		h, _, _, _ := newDeviceFixture()

		req := withAuth(httptest.NewRequest(http.MethodGet, "/devices?limit=-5&offset=-2", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(DefaultLimit), body["limit"])
		assert.Equal(t, float64(0), body["offset"])
	})
}

func TestRevokeAllEndpoint(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		h, _, _, _ := newDeviceFixture()

		rec := httptest.NewRecorder()
		h.RevokeAll(rec, httptest.NewRequest(http.MethodDelete, "/devices", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revokes the caller's devices and reports the count", func(t *testing.T) {
		h, _, deviceRepo, sessionRepo := newDeviceFixture()
		ctx := context.Background()
		deviceRepo.Record(ctx, model.RecordAuthorizedDeviceParams{UserID: "u1", DeviceID: "d1"})
		deviceRepo.Record(ctx, model.RecordAuthorizedDeviceParams{UserID: "u1", DeviceID: "d2"})
		deviceRepo.Record(ctx, model.RecordAuthorizedDeviceParams{UserID: "u2", DeviceID: "d3"})
		sessionRepo.Create(ctx, model.CreateDeviceSessionParams{UserID: "u1", DeviceID: "d1", TokenHash: "h1"})

		req := withAuth(httptest.NewRequest(http.MethodDelete, "/devices", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.RevokeAll(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), decodeBody(t, rec)["revoked"])

		remaining, _ := deviceRepo.CountByUserID(ctx, "u2")
		assert.Equal(t, 1, remaining)
		assert.Empty(t, sessionRepo.sessions)
	})

	t.Run("second revoke is zero", func(t *testing.T) {
		h, _, deviceRepo, _ := newDeviceFixture()
		ctx := context.Background()
		deviceRepo.Record(ctx, model.RecordAuthorizedDeviceParams{UserID: "u1", DeviceID: "d1"})

		req := withAuth(httptest.NewRequest(http.MethodDelete, "/devices", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.RevokeAll(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		h.RevokeAll(rec, withAuth(httptest.NewRequest(http.MethodDelete, "/devices", nil), "u1", false))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(0), decodeBody(t, rec)["revoked"])
	})
}
