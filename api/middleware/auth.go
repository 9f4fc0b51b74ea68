package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jmcampos/minimart-backend/api/responses"
	pkgauth "github.com/jmcampos/minimart-backend/pkg/auth"
	"github.com/jmcampos/minimart-backend/pkg/config"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
	"github.com/jmcampos/minimart-backend/pkg/session"
)

// Auth validates a bearer token, loads the server-side session keyed by
// its jti, and seeds the request context. Sessions still waiting on a
// second factor are rejected.
func Auth(cfg config.JWTConfig, sessions session.Reader, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, sessions, logg, false)
}

// AuthAllowPending is Auth without the second-factor gate. Only the code
// verification endpoint uses it.
func AuthAllowPending(cfg config.JWTConfig, sessions session.Reader, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, sessions, logg, true)
}

func authenticate(cfg config.JWTConfig, sessions session.Reader, logg *logger.Logger, allowPending bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			sess, err := sessions.Get(r.Context(), claims.ID)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading session"))
				return
			}
			if !allowPending && !sess.Authenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "verification required"))
				return
			}

			ctx := WithSession(r.Context(), sess)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    sess.UserID.String(),
					"actor_role": string(sess.Role),
				})
				ctx = logg.WithSessionID(ctx, sess.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
