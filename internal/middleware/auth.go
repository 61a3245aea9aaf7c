package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kokare-darshan/quickconnect/internal/model"
	"github.com/kokare-darshan/quickconnect/internal/repository"
	"github.com/kokare-darshan/quickconnect/internal/util"
)

type contextKey string

const AuthContextKey contextKey = "auth"

func GetAuth(ctx context.Context) *model.AuthInfo {
	if auth, ok := ctx.Value(AuthContextKey).(*model.AuthInfo); ok {
		return auth
	}
	return nil
}

// AuthMiddleware resolves a bearer token to a device session and the
// user behind it.
type AuthMiddleware struct {
	sessionRepo repository.DeviceSessionRepository
	userRepo    repository.UserRepository
}

func NewAuthMiddleware(sessionRepo repository.DeviceSessionRepository, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{sessionRepo: sessionRepo, userRepo: userRepo}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		tokenHash := util.HashToken(token)
		session, err := m.sessionRepo.FindByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		if session == nil {
			log.Warn().Msg("auth middleware: invalid token attempt")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		user, err := m.userRepo.FindByID(r.Context(), session.UserID)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		// Session outliving its user means the user was disabled.
		if user == nil {
			log.Warn().Str("sessionId", session.ID).Msg("auth middleware: session for disabled user")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		auth := &model.AuthInfo{
			User:       user,
			SessionID:  session.ID,
			DeviceID:   session.DeviceID,
			DeviceName: session.DeviceName,
		}
		ctx := context.WithValue(r.Context(), AuthContextKey, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
