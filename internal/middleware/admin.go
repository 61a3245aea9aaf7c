package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// RequireAdmin gates a route behind the authenticated user's admin
// flag. Must be mounted after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := GetAuth(r.Context())
		if auth == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		if !auth.User.IsAdmin {
			log.Warn().Str("userId", auth.User.ID).Msg("non-admin attempted an admin operation")
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Administrator access required",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
