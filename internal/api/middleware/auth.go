package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/guildbot/internal/api/apierr"
	"github.com/mcoot/guildbot/internal/services/auth"
)

// Auth requires the admin bearer token. Rejected attempts are logged with
// the caller address.
func Auth(authService *auth.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="guildbot"`)
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			if _, err := authService.Authenticate(token); err != nil {
				if errors.Is(err, auth.ErrInvalidCredentials) {
					w.Header().Set("WWW-Authenticate", `Bearer realm="guildbot", error="invalid_token"`)
					logger.Warn("rejected admin token",
						slog.String("request_id", RequestID(r.Context())),
						slog.String("remote", r.RemoteAddr),
					)
				}
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}
