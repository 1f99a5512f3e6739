package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/gofer/internal/domain"
)

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	VerifyAccessToken(token string) (domain.Identity, error)
}

// Auth rejects requests without a valid access token. Browsers cannot set
// headers on WebSocket upgrades, so those may pass the token as the
// access_token query parameter instead.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractToken(r)
			if tok == "" {
				unauthorized(w, "missing credentials")
				return
			}

			id, err := verifier.VerifyAccessToken(tok)
			if err != nil || !id.Authenticated() {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("auth: rejected token")
				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func extractToken(r *http.Request) string {
	if tok := extractBearer(r); tok != "" {
		return tok
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="gofer"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"` + detail + `"}`))
}
