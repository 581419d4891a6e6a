package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests against a KeyStore.
type Middleware struct {
	store    *KeyStore
	header   string
	writeErr ErrorWriter
	logger   *slog.Logger
}

// NewMiddleware creates the middleware. An empty header means X-API-Key.
// When header is "Authorization" the key must use the Bearer scheme.
func NewMiddleware(store *KeyStore, header string, writeErr ErrorWriter) *Middleware {
	if header == "" {
		header = "X-API-Key"
	}
	if writeErr == nil {
		writeErr = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return &Middleware{
		store:    store,
		header:   http.CanonicalHeaderKey(header),
		writeErr: writeErr,
		logger:   slog.Default().With("component", "auth"),
	}
}

// Require returns middleware admitting only keys granted scope.
func (m *Middleware) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := m.store.Validate(m.extractKey(r))
			if err != nil {
				m.logger.Warn("authentication failed",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				m.writeErr(w, r, err)
				return
			}

			if !principal.Allows(scope) {
				m.logger.Warn("authorization failed",
					"principal", principal.Name,
					"scope", scope,
					"path", r.URL.Path,
				)
				m.writeErr(w, r, ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func (m *Middleware) extractKey(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get(m.header))
	if m.header != "Authorization" {
		return value
	}
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
