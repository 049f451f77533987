package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/session"

	"github.com/rs/zerolog"
)

// SessionHeader carries the anonymous session token for clients without cookies.
const SessionHeader = "X-Session-Token"

const sessionCookieMaxAge = 14 * 24 * time.Hour

type contextKey string

const (
	identityKey contextKey = "identity"
	sessionKey  contextKey = "session_token"
)

// Identity resolves who is calling: a user from a bearer token, or else an
// anonymous visitor from the session cookie or header. Visitors without a
// session get a fresh token, set as a cookie and echoed in SessionHeader.
func Identity(tokens *auth.Tokens, cfg config.AuthConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("middleware", "identity").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id model.Identity

			if raw, ok := bearerToken(r); ok {
				userID, err := tokens.Parse(raw)
				if err != nil {
					logger.Warn().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected")
					writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid or expired token")
					return
				}
				id = model.UserIdentity(userID)
			}

			token := sessionToken(r, cfg.SessionCookieName)
			if token == "" && !id.IsAuthenticated() {
				issued, err := session.NewToken()
				if err != nil {
					logger.Error().Err(err).Msg("failed to issue session token")
					writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
					return
				}
				token = issued
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.SessionCookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(sessionCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.SecureCookies,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Debug().Msg("session token issued")
			}
			if token != "" {
				w.Header().Set(SessionHeader, token)
			}
			if !id.IsAuthenticated() {
				id = model.SessionIdentity(token)
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id, token)))
		})
	}
}

// WithIdentity stores the caller identity and its session token in ctx.
func WithIdentity(ctx context.Context, id model.Identity, sessionToken string) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	return context.WithValue(ctx, sessionKey, sessionToken)
}

// IdentityFrom returns the caller identity, zero when Identity did not run.
func IdentityFrom(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey).(model.Identity)
	return id
}

// SessionTokenFrom returns the anonymous session token of the caller, if any.
func SessionTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(sessionKey).(string)
	return token
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// sessionToken prefers the header over the cookie. Malformed values are ignored.
func sessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get(SessionHeader); session.ValidToken(h) {
		return h
	}
	if c, err := r.Cookie(cookieName); err == nil && session.ValidToken(c.Value) {
		return c.Value
	}
	return ""
}
