package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liamwears/reelwrapped/internal/models"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserContextKey is the key for storing user in context
	UserContextKey ContextKey = "user"
	// UserIDContextKey is the key for storing user ID in context
	UserIDContextKey ContextKey = "userID"
)

// Sessions resolves session cookies to user ids
type Sessions interface {
	Get(ctx context.Context, sessionID string) (uuid.UUID, error)
	Delete(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

// Users loads the account behind a session
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthMiddleware handles authentication for protected routes
type AuthMiddleware struct {
	sessions     Sessions
	users        Users
	cookieName   string
	secret       []byte
	isProduction bool
}

// NewAuthMiddleware creates a new authentication middleware. secret signs
// the session cookie.
func NewAuthMiddleware(sessions Sessions, users Users, cookieName, secret string, isProduction bool) *AuthMiddleware {
	if cookieName == "" {
		cookieName = "session"
	}
	return &AuthMiddleware{
		sessions:     sessions,
		users:        users,
		cookieName:   cookieName,
		secret:       []byte(secret),
		isProduction: isProduction,
	}
}

// CookieName is the name of the session cookie
func (m *AuthMiddleware) CookieName() string {
	return m.cookieName
}

func (m *AuthMiddleware) signature(sessionID string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CookieValue is the signed cookie value for a session id
func (m *AuthMiddleware) CookieValue(sessionID string) string {
	return sessionID + "." + m.signature(sessionID)
}

// SessionID returns the session id from a correctly signed cookie
func (m *AuthMiddleware) SessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	id, sig, ok := strings.Cut(cookie.Value, ".")
	if !ok || id == "" || !hmac.Equal([]byte(sig), []byte(m.signature(id))) {
		return "", false
	}
	return id, true
}

// resolve loads the user for the request's session cookie. stale is true
// when a cookie was present but points at nothing usable.
func (m *AuthMiddleware) resolve(r *http.Request) (user *models.User, stale bool) {
	if _, err := r.Cookie(m.cookieName); err != nil {
		return nil, false
	}

	sessionID, ok := m.SessionID(r)
	if !ok {
		return nil, true
	}

	userID, err := m.sessions.Get(r.Context(), sessionID)
	if err != nil {
		return nil, true
	}

	user, err = m.users.Get(r.Context(), userID)
	if err != nil {
		// Account is gone; drop the orphaned session.
		_ = m.sessions.Delete(r.Context(), sessionID)
		return nil, true
	}

	return user, false
}

func withUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), UserContextKey, user)
	ctx = context.WithValue(ctx, UserIDContextKey, user.ID)
	return r.WithContext(ctx)
}

// RequireAuth redirects anonymous visitors to the login page
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, stale := m.resolve(r)
		if user == nil {
			if stale {
				m.ClearSessionCookie(w)
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

// OptionalAuth attaches the user when there is one but never blocks
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, _ := m.resolve(r); user != nil {
			r = withUser(r, user)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthAPI answers 401 JSON for anonymous API calls
func (m *AuthMiddleware) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := m.resolve(r)
		if user == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Not authenticated"}`))
			return
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

// GetUserFromContext retrieves the user from request context
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// GetUserIDFromContext retrieves the user ID from request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// SetSessionCookie sets a session cookie that lives as long as the session
func (m *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	cookie := &http.Cookie{
		Name:     m.cookieName,
		Value:    m.CookieValue(sessionID),
		Path:     "/",
		MaxAge:   int(m.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   m.isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie clears the session cookie
func (m *AuthMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}
