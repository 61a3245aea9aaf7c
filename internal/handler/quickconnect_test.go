package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokare-darshan/quickconnect/internal/middleware"
	"github.com/kokare-darshan/quickconnect/internal/model"
	"github.com/kokare-darshan/quickconnect/internal/service"
)

type stubDeviceRepo struct {
	devices []model.AuthorizedDevice
}

func (s *stubDeviceRepo) Record(ctx context.Context, params model.RecordAuthorizedDeviceParams) (*model.AuthorizedDevice, error) {
	device := model.AuthorizedDevice{
		ID:           fmt.Sprintf("row-%d", len(s.devices)+1),
		UserID:       params.UserID,
		DeviceID:     params.DeviceID,
		DeviceName:   params.DeviceName,
		AuthorizedAt: time.Now(),
	}
	s.devices = append(s.devices, device)
	return &device, nil
}

func (s *stubDeviceRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.AuthorizedDevice, error) {
	var out []model.AuthorizedDevice
	for _, d := range s.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDeviceRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	devices, _ := s.FindByUserID(ctx, userID, 0, 0)
	return len(devices), nil
}

func (s *stubDeviceRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	var kept []model.AuthorizedDevice
	var deleted int64
	for _, d := range s.devices {
		if d.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	s.devices = kept
	return deleted, nil
}

type stubSessionRepo struct {
	sessions []model.DeviceSession
}

func (s *stubSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.DeviceSession, error) {
	return nil, nil
}

func (s *stubSessionRepo) Create(ctx context.Context, params model.CreateDeviceSessionParams) (*model.DeviceSession, error) {
	session := model.DeviceSession{
		ID:         fmt.Sprintf("sess-%d", len(s.sessions)+1),
		UserID:     params.UserID,
		DeviceID:   params.DeviceID,
		DeviceName: params.DeviceName,
		TokenHash:  params.TokenHash,
		ExpiresAt:  params.ExpiresAt,
		CreatedAt:  time.Now(),
	}
	s.sessions = append(s.sessions, session)
	return &session, nil
}

func (s *stubSessionRepo) Delete(ctx context.Context, id string) error { return nil }

func (s *stubSessionRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	var kept []model.DeviceSession
	var deleted int64
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, sess)
	}
	s.sessions = kept
	return deleted, nil
}

func (s *stubSessionRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

func newQCFixture() (*QuickConnectHandler, *service.QuickConnectService, *stubDeviceRepo) {
	deviceRepo := &stubDeviceRepo{}
	svc := service.NewQuickConnectService(deviceRepo, &stubSessionRepo{}, 5*time.Minute, 5*time.Minute, 720*time.Hour)
	return NewQuickConnectHandler(svc), svc, deviceRepo
}

func withAuth(r *http.Request, userID string, admin bool) *http.Request {
	auth := &model.AuthInfo{
		User:       &model.User{ID: userID, Username: userID, IsAdmin: admin},
		SessionID:  "sess-" + userID,
		DeviceID:   "device-" + userID,
		DeviceName: "Phone of " + userID,
	}
	return r.WithContext(context.WithValue(r.Context(), middleware.AuthContextKey, auth))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestStatusEndpoint(t *testing.T) {
	h, svc, _ := newQCFixture()

	req := httptest.NewRequest(http.MethodGet, "/quickconnect/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unavailable", decodeBody(t, rec)["state"])

	require.NoError(t, svc.SetState(context.Background(), model.StateActive))
	rec = httptest.NewRecorder()
	h.Status(rec, req)
	assert.Equal(t, "active", decodeBody(t, rec)["state"])
}

func TestInitiateEndpoint(t *testing.T) {
	t.Run("forbidden while not active", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := httptest.NewRequest(http.MethodPost, "/quickconnect/initiate", nil)
		rec := httptest.NewRecorder()
		h.Initiate(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("returns secret and code while active", func(t *testing.T) {
		h, svc, _ := newQCFixture()
		require.NoError(t, svc.SetState(context.Background(), model.StateActive))

		req := httptest.NewRequest(http.MethodPost, "/quickconnect/initiate",
			strings.NewReader(`{"friendlyName":"Living Room TV"}`))
		rec := httptest.NewRecorder()
		h.Initiate(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Len(t, body["secret"], 64)
		assert.Len(t, body["code"], 6)
		assert.NotEmpty(t, body["expiresAt"])
	})

	t.Run("body is optional", func(t *testing.T) {
		h, svc, _ := newQCFixture()
		require.NoError(t, svc.SetState(context.Background(), model.StateActive))

		req := httptest.NewRequest(http.MethodPost, "/quickconnect/initiate", nil)
		rec := httptest.NewRecorder()
		h.Initiate(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestConnectEndpoint(t *testing.T) {
	t.Run("missing secret is a bad request", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := httptest.NewRequest(http.MethodGet, "/quickconnect/connect", nil)
		rec := httptest.NewRecorder()
		h.Connect(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown secret is not found", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := httptest.NewRequest(http.MethodGet, "/quickconnect/connect?secret=nope", nil)
		rec := httptest.NewRecorder()
		h.Connect(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("pending request reports unresolved", func(t *testing.T) {
		h, svc, _ := newQCFixture()
		ctx := context.Background()
		require.NoError(t, svc.SetState(ctx, model.StateActive))
		res, err := svc.Initiate(ctx, "TV")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/quickconnect/connect?secret="+res.Secret, nil)
		rec := httptest.NewRecorder()
		h.Connect(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["resolved"])
		assert.Equal(t, res.Code, body["code"])
		assert.Nil(t, body["authentication"])
	})
}

func TestActivateEndpoint(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := httptest.NewRequest(http.MethodPost, "/quickconnect/activate", nil)
		rec := httptest.NewRecorder()
		h.Activate(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("forbidden while unavailable", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := withAuth(httptest.NewRequest(http.MethodPost, "/quickconnect/activate", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.Activate(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("opens a window when available", func(t *testing.T) {
		h, svc, _ := newQCFixture()
		require.NoError(t, svc.SetState(context.Background(), model.StateAvailable))

		req := withAuth(httptest.NewRequest(http.MethodPost, "/quickconnect/activate", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.Activate(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "active", decodeBody(t, rec)["state"])
	})
}

func TestSetAvailabilityEndpoint(t *testing.T) {
	t.Run("rejects malformed body", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := withAuth(httptest.NewRequest(http.MethodPost, "/quickconnect/availability",
			strings.NewReader("{")), "admin", true)
		rec := httptest.NewRecorder()
		h.SetAvailability(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := withAuth(httptest.NewRequest(http.MethodPost, "/quickconnect/availability",
			strings.NewReader(`{"state":"sideways"}`)), "admin", true)
		rec := httptest.NewRecorder()
		h.SetAvailability(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("applies a valid state", func(t *testing.T) {
		h, svc, _ := newQCFixture()

		req := withAuth(httptest.NewRequest(http.MethodPost, "/quickconnect/availability",
			strings.NewReader(`{"state":"available"}`)), "admin", true)
		rec := httptest.NewRecorder()
		h.SetAvailability(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "available", decodeBody(t, rec)["state"])
		assert.Equal(t, model.StateAvailable, svc.State(context.Background()))
	})
}

func TestAuthorizeEndpoint(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := httptest.NewRequest(http.MethodPost, "/quickconnect/authorize?code=123456", nil)
		rec := httptest.NewRecorder()
		h.Authorize(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty code is a bad request", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := withAuth(httptest.NewRequest(http.MethodPost, "/quickconnect/authorize", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.Authorize(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown code returns false", func(t *testing.T) {
		h, _, _ := newQCFixture()

		req := withAuth(httptest.NewRequest(http.MethodPost, "/quickconnect/authorize?code=123456", nil), "u1", false)
		rec := httptest.NewRecorder()
		h.Authorize(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "false", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("approving a pending code returns true and pairs the device", func(t *testing.T) {
		h, svc, deviceRepo := newQCFixture()
		ctx := context.Background()
		require.NoError(t, svc.SetState(ctx, model.StateActive))
		res, err := svc.Initiate(ctx, "Living Room TV")
		require.NoError(t, err)

		req := withAuth(httptest.NewRequest(http.MethodPost, "/quickconnect/authorize?code="+res.Code, nil), "u42", false)
		rec := httptest.NewRecorder()
		h.Authorize(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "true", strings.TrimSpace(rec.Body.String()))
		require.Len(t, deviceRepo.devices, 1)
		assert.Equal(t, "u42", deviceRepo.devices[0].UserID)

		// The TV's next poll over HTTP collects the grant.
		pollReq := httptest.NewRequest(http.MethodGet, "/quickconnect/connect?secret="+res.Secret, nil)
		pollRec := httptest.NewRecorder()
		h.Connect(pollRec, pollReq)

		require.Equal(t, http.StatusOK, pollRec.Code)
		body := decodeBody(t, pollRec)
		assert.Equal(t, true, body["resolved"])
		authentication, ok := body["authentication"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "u42", authentication["userId"])
		assert.NotEmpty(t, authentication["accessToken"])

		// And the poll after that finds nothing.
		goneRec := httptest.NewRecorder()
		h.Connect(goneRec, httptest.NewRequest(http.MethodGet, "/quickconnect/connect?secret="+res.Secret, nil))
		assert.Equal(t, http.StatusNotFound, goneRec.Code)
	})
}
