package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/kokare-darshan/quickconnect/internal/errors"
	"github.com/kokare-darshan/quickconnect/internal/model"
	"github.com/kokare-darshan/quickconnect/internal/repository"
	"github.com/kokare-darshan/quickconnect/internal/util"
)

const (
	codeDigits      = "0123456789"
	codeLength      = 6
	maxCodeAttempts = 10
)

// QuickConnectService owns the quick connect state machine and the
// in-memory registry of pending pairing requests. All registry access
// goes through a single mutex; expired entries are swept on every read
// so callers never observe a stale request or a stale active window.
type QuickConnectService struct {
	deviceRepo  repository.AuthorizedDeviceRepository
	sessionRepo repository.DeviceSessionRepository

	requestTTL   time.Duration
	activeWindow time.Duration
	sessionTTL   time.Duration

	now func() time.Time

	mu          sync.Mutex
	state       model.QuickConnectState
	activeUntil time.Time
	bySecret    map[string]*model.PairingRequest
	byCode      map[string]string
}

func NewQuickConnectService(
	deviceRepo repository.AuthorizedDeviceRepository,
	sessionRepo repository.DeviceSessionRepository,
	requestTTL time.Duration,
	activeWindow time.Duration,
	sessionTTL time.Duration,
) *QuickConnectService {
	return &QuickConnectService{
		deviceRepo:   deviceRepo,
		sessionRepo:  sessionRepo,
		requestTTL:   requestTTL,
		activeWindow: activeWindow,
		sessionTTL:   sessionTTL,
		now:          time.Now,
		state:        model.StateUnavailable,
		bySecret:     make(map[string]*model.PairingRequest),
		byCode:       make(map[string]string),
	}
}

// State reports the current availability after demoting an expired
// active window and sweeping expired requests.
func (s *QuickConnectService) State(ctx context.Context) model.QuickConnectState {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.demoteLocked(now)
	s.sweepLocked(now)
	return s.state
}

// Activate opens an acceptance window. A prior window is overwritten.
func (s *QuickConnectService) Activate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.demoteLocked(now)

	if s.state == model.StateUnavailable {
		return apperrors.Forbidden("Quick connect is unavailable")
	}

	s.state = model.StateActive
	s.activeUntil = now.Add(s.activeWindow)

	log.Info().Time("activeUntil", s.activeUntil).Msg("quick connect activated")
	return nil
}

// SetState is the administrative override. Setting any state other
// than active clears a running acceptance window.
func (s *QuickConnectService) SetState(ctx context.Context, target model.QuickConnectState) error {
	if !target.IsValid() {
		return apperrors.InvalidInput("state", "must be one of unavailable, available, active")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.state = target
	if target == model.StateActive {
		s.activeUntil = now.Add(s.activeWindow)
	} else {
		s.activeUntil = time.Time{}
	}

	log.Info().Str("state", string(target)).Msg("quick connect state changed")
	return nil
}

// Initiate creates a pending pairing request. The returned secret is
// the caller's only handle for polling and is never shown again.
func (s *QuickConnectService) Initiate(ctx context.Context, friendlyName string) (*model.InitiateResult, error) {
	secret, err := util.GenerateSecret()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate secret").WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.demoteLocked(now)
	s.sweepLocked(now)

	if s.state != model.StateActive {
		return nil, apperrors.Forbidden("Quick connect is not active")
	}

	if _, exists := s.bySecret[secret]; exists {
		// 256-bit collision; something is badly wrong with the RNG.
		log.Error().Msg("duplicate pairing secret generated")
		return nil, apperrors.Internal("Failed to generate secret")
	}

	code, err := s.allocateCodeLocked()
	if err != nil {
		return nil, err
	}

	req := &model.PairingRequest{
		Secret:       secret,
		Code:         code,
		FriendlyName: strings.TrimSpace(friendlyName),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.requestTTL),
	}
	s.bySecret[secret] = req
	s.byCode[code] = secret

	log.Info().
		Str("code", util.MaskCode(code)).
		Str("secret", util.MaskSecret(secret)).
		Time("expiresAt", req.ExpiresAt).
		Msg("pairing request created")

	return &model.InitiateResult{
		Secret:    secret,
		Code:      code,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

// CheckStatus is the polling operation. Unknown and expired secrets
// are indistinguishable. The first poll that observes a resolved
// request consumes it and receives the session grant; any later poll
// sees NotFound.
func (s *QuickConnectService) CheckStatus(ctx context.Context, secret string) (*model.PairingStatus, error) {
	s.mu.Lock()

	now := s.now()
	s.demoteLocked(now)
	s.sweepLocked(now)

	req, ok := s.bySecret[secret]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NotFound("Request")
	}

	if !req.Resolved {
		status := &model.PairingStatus{Code: req.Code, Resolved: false}
		s.mu.Unlock()
		return status, nil
	}

	// Single-collection: remove before issuing the grant so a racing
	// second poll cannot collect the same result.
	delete(s.bySecret, secret)
	collected := *req
	s.mu.Unlock()

	grant, err := s.issueGrant(ctx, collected)
	if err != nil {
		log.Error().Err(err).
			Str("code", util.MaskCode(collected.Code)).
			Msg("failed to issue session grant for collected pairing request")
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("code", util.MaskCode(collected.Code)).
		Str("userId", collected.UserID).
		Msg("pairing request collected")

	return &model.PairingStatus{
		Code:           collected.Code,
		Resolved:       true,
		Authentication: grant,
	}, nil
}

// Authorize resolves a pending request by code on behalf of an
// authenticated caller and records the caller's device. An unknown,
// already-resolved, or expired code is a benign false, not an error.
func (s *QuickConnectService) Authorize(ctx context.Context, auth model.AuthInfo, code string) (bool, error) {
	normalized := strings.TrimSpace(code)
	if normalized == "" {
		return false, apperrors.MissingRequired("code")
	}
	if !isValidCode(normalized) {
		return false, apperrors.InvalidInput("code", "must be 6 digits")
	}

	s.mu.Lock()

	now := s.now()
	s.sweepLocked(now)

	secret, ok := s.byCode[normalized]
	if !ok {
		s.mu.Unlock()
		log.Warn().Str("code", util.MaskCode(normalized)).Msg("authorize attempt for unknown pairing code")
		return false, nil
	}

	req := s.bySecret[secret]
	req.Resolved = true
	req.UserID = auth.User.ID
	// Free the code for reuse; only unresolved requests hold codes.
	delete(s.byCode, normalized)
	s.mu.Unlock()

	if _, err := s.deviceRepo.Record(ctx, model.RecordAuthorizedDeviceParams{
		UserID:     auth.User.ID,
		DeviceID:   auth.DeviceID,
		DeviceName: auth.DeviceName,
	}); err != nil {
		log.Error().Err(err).Str("userId", auth.User.ID).Msg("failed to record authorized device")
		return false, apperrors.Database(err)
	}

	log.Info().
		Str("code", util.MaskCode(normalized)).
		Str("userId", auth.User.ID).
		Str("deviceId", auth.DeviceID).
		Msg("pairing request authorized")

	return true, nil
}

// SweepExpired removes every uncollected request whose deadline has
// passed. Idempotent; also run periodically by the cleanup job.
func (s *QuickConnectService) SweepExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now()), nil
}

// RevokeAll deletes every authorized-device row for the user along
// with the user's device sessions, and returns the device count.
// Pending pairing requests are untouched; they expire on their own.
func (s *QuickConnectService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	devices, err := s.deviceRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, apperrors.Database(err)
	}

	sessions, err := s.sessionRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return devices, apperrors.Database(err)
	}

	log.Info().
		Str("userId", userID).
		Int64("devices", devices).
		Int64("sessions", sessions).
		Msg("quick connect access revoked")

	return devices, nil
}

func (s *QuickConnectService) ListDevices(ctx context.Context, userID string, limit, offset int) ([]model.AuthorizedDevice, int, error) {
	devices, err := s.deviceRepo.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	total, err := s.deviceRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	return devices, total, nil
}

func (s *QuickConnectService) issueGrant(ctx context.Context, req model.PairingRequest) (*model.SessionGrant, error) {
	token, err := util.GenerateSecret()
	if err != nil {
		return nil, err
	}
	tokenHash := util.HashToken(token)

	deviceName := req.FriendlyName
	if deviceName == "" {
		deviceName = "Quick connect device"
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateDeviceSessionParams{
		UserID:     req.UserID,
		DeviceID:   util.DeriveDeviceID(tokenHash),
		DeviceName: deviceName,
		TokenHash:  tokenHash,
		ExpiresAt:  s.now().Add(s.sessionTTL),
	})
	if err != nil {
		return nil, err
	}

	return &model.SessionGrant{
		UserID:      session.UserID,
		DeviceID:    session.DeviceID,
		AccessToken: token,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// demoteLocked folds an elapsed acceptance window back to available.
func (s *QuickConnectService) demoteLocked(now time.Time) {
	if s.state == model.StateActive && !s.activeUntil.After(now) {
		s.state = model.StateAvailable
		s.activeUntil = time.Time{}
		log.Info().Msg("quick connect acceptance window elapsed")
	}
}

// sweepLocked drops every request at or past its deadline.
func (s *QuickConnectService) sweepLocked(now time.Time) int64 {
	var removed int64
	for secret, req := range s.bySecret {
		if req.ExpiresAt.After(now) {
			continue
		}
		delete(s.bySecret, secret)
		if s.byCode[req.Code] == secret {
			delete(s.byCode, req.Code)
		}
		removed++
	}
	if removed > 0 {
		log.Debug().Int64("count", removed).Msg("expired pairing requests swept")
	}
	return removed
}

// allocateCodeLocked draws codes until one does not collide with a
// pending request. Exhausting the retry budget means the pending table
// is saturated relative to the code space, which is a deployment
// problem, not a caller error.
func (s *QuickConnectService) allocateCodeLocked() (string, error) {
	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		code := generateCode()
		if _, taken := s.byCode[code]; !taken {
			return code, nil
		}
	}
	log.Error().Int("attempts", maxCodeAttempts).Msg("pairing code allocation exhausted retries")
	return "", apperrors.Internal("Failed to allocate pairing code")
}

func generateCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeDigits))))
		buf[i] = codeDigits[n.Int64()]
	}
	return string(buf)
}

func isValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
