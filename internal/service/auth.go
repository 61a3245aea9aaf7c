package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/kokare-darshan/quickconnect/internal/errors"
	"github.com/kokare-darshan/quickconnect/internal/model"
	"github.com/kokare-darshan/quickconnect/internal/repository"
	"github.com/kokare-darshan/quickconnect/internal/util"
)

// AuthService issues and revokes device sessions for credentialed
// logins. Quick connect grants reuse the same session shape, so a
// device paired either way authenticates identically afterwards.
type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.DeviceSessionRepository
	sessionTTL  time.Duration
	now         func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.DeviceSessionRepository,
	sessionTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
		now:         time.Now,
	}
}

// Login verifies credentials and issues a device session. Unknown
// user and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password, deviceName string) (*model.SessionGrant, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.MissingRequired("username")
	}
	if password == "" {
		return nil, apperrors.MissingRequired("password")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		log.Warn().Str("username", username).Msg("failed login attempt")
		return nil, apperrors.Unauthorized("Invalid username or password")
	}

	token, err := util.GenerateSecret()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate session token").WithCause(err)
	}
	tokenHash := util.HashToken(token)

	if deviceName = strings.TrimSpace(deviceName); deviceName == "" {
		deviceName = "Unknown device"
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateDeviceSessionParams{
		UserID:     user.ID,
		DeviceID:   util.DeriveDeviceID(tokenHash),
		DeviceName: deviceName,
		TokenHash:  tokenHash,
		ExpiresAt:  s.now().Add(s.sessionTTL),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("userId", user.ID).Str("deviceId", session.DeviceID).Msg("login succeeded")

	return &model.SessionGrant{
		UserID:      session.UserID,
		DeviceID:    session.DeviceID,
		AccessToken: token,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// Logout deletes the calling session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return apperrors.Database(err)
	}
	return nil
}
