package auth

import (
	"net/http"
	"strings"
)

// SessionValidator checks that a bearer token still belongs to a live login.
type SessionValidator interface {
	Active(accountID, sessionID string) bool
}

// Middleware validates session tokens.
type Middleware struct {
	Tokens   *Tokens
	Policy   Policy
	Sessions SessionValidator
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(tokens *Tokens, policy Policy, sessions SessionValidator) *Middleware {
	return &Middleware{Tokens: tokens, Policy: policy, Sessions: sessions}
}

// Wrap applies auth to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil || m.Tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) || !m.Policy.RequiresSession(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.Tokens.ParseSessionToken(extractBearer(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if m.Sessions != nil && !m.Sessions.Active(claims.AccountID, claims.ID) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), claims.AccountID)))
	})
}

func extractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		// EventSource clients cannot set headers.
		return r.URL.Query().Get("access_token")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
