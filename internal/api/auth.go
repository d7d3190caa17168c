package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/quitvipe/quitvipe/internal/domain"
	"github.com/quitvipe/quitvipe/internal/token"
)

const (
	sessionName      = "quitvipe-session"
	sessionUserIDKey = "user_id"
)

type ctxKey int

const userKey ctxKey = iota

// WithUser stores the authenticated user id on ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFrom returns the authenticated user id, or "" when there is none.
func UserFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

// Authenticator resolves the caller from a session cookie or a bearer token.
type Authenticator struct {
	store  *sessions.CookieStore
	tokens *token.Issuer
}

// NewAuthenticator creates the auth boundary. secure marks the cookie HTTPS only.
func NewAuthenticator(sessionSecret string, secure bool, tokens *token.Issuer) *Authenticator {
	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Authenticator{store: store, tokens: tokens}
}

// Middleware rejects requests without an identity with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := a.identify(r)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", domain.ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}

// identify prefers an explicit bearer token over the cookie.
func (a *Authenticator) identify(r *http.Request) string {
	if raw, ok := bearerToken(r); ok {
		if a.tokens == nil {
			return ""
		}
		userID, err := a.tokens.Verify(raw)
		if err != nil {
			return ""
		}
		return userID
	}
	return a.sessionUser(r)
}

func (a *Authenticator) sessionUser(r *http.Request) string {
	session, err := a.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	userID, _ := session.Values[sessionUserIDKey].(string)
	return userID
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(raw), true
}

// handleCreateSession exchanges a valid bearer token for a cookie session.
func (a *Authenticator) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	raw, ok := bearerToken(r)
	if !ok || a.tokens == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
		return
	}
	userID, err := a.tokens.Verify(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	// A stale or tampered cookie still yields a fresh session.
	session, _ := a.store.Get(r, sessionName)
	session.Values[sessionUserIDKey] = userID
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to save session")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"user_id": userID})
}

func (a *Authenticator) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.clearSession(w, r); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to clear session")
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"signed_out": true})
}

func (a *Authenticator) clearSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := a.store.Get(r, sessionName)
	delete(session.Values, sessionUserIDKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
