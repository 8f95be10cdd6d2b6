package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/reelwrapped/internal/database"
	"github.com/liamwears/reelwrapped/internal/models"
)

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("no rows in result set")
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestAuth(t *testing.T) (*AuthMiddleware, *database.SessionStore, *models.User) {
	t.Helper()
	_, client := newTestRedis(t)
	store := database.NewSessionStore(client, time.Hour)

	user := &models.User{ID: uuid.New(), Provider: models.ProviderLocal, Username: "ada"}
	users := &fakeUsers{users: map[uuid.UUID]*models.User{user.ID: user}}

	return NewAuthMiddleware(store, users, "", testSecret, false), store, user
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequireAuthRedirectsWithoutCookie(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	rec := httptest.NewRecorder()
	auth.RequireAuth(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/my_list", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireAuthClearsStaleCookie(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	req := httptest.NewRequest(http.MethodGet, "/my_list", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName(), Value: "expired"})
	rec := httptest.NewRecorder()
	auth.RequireAuth(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRequireAuthAttachesUser(t *testing.T) {
	auth, store, user := newTestAuth(t)

	sessionID, err := store.Create(context.Background(), user.ID)
	require.NoError(t, err)

	var gotUser *models.User
	var gotID uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserFromContext(r.Context())
		gotID, _ = GetUserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/wrapped", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName(), Value: auth.CookieValue(sessionID)})
	auth.RequireAuth(next).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, gotUser)
	assert.Equal(t, user.ID, gotUser.ID)
	assert.Equal(t, user.ID, gotID)
}

func TestRequireAuthDropsSessionOfDeletedUser(t *testing.T) {
	auth, store, _ := newTestAuth(t)

	sessionID, err := store.Create(context.Background(), uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/wrapped", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName(), Value: auth.CookieValue(sessionID)})
	rec := httptest.NewRecorder()
	auth.RequireAuth(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = store.Get(context.Background(), sessionID)
	assert.ErrorIs(t, err, database.ErrSessionNotFound)
}

func TestRequireAuthAPI(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	rec := httptest.NewRecorder()
	auth.RequireAuthAPI(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/favorites", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Not authenticated"}`, rec.Body.String())
}

func TestOptionalAuthNeverBlocks(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := GetUserFromContext(r.Context())
		assert.False(t, ok)
	})

	auth.OptionalAuth(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search", nil))
	assert.True(t, called)
}

func TestSetSessionCookieUsesSessionTTL(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	rec := httptest.NewRecorder()
	auth.SetSessionCookie(rec, "abc")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, auth.CookieValue("abc"), cookies[0].Value)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessionIDRejectsTamperedCookie(t *testing.T) {
	auth, store, user := newTestAuth(t)

	sessionID, err := store.Create(context.Background(), user.ID)
	require.NoError(t, err)

	for _, value := range []string{sessionID, sessionID + ".forged", "." + auth.signature(""), "other." + auth.signature(sessionID)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName(), Value: value})
		_, ok := auth.SessionID(req)
		assert.False(t, ok, value)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName(), Value: auth.CookieValue(sessionID)})
	got, ok := auth.SessionID(req)
	require.True(t, ok)
	assert.Equal(t, sessionID, got)

	other := NewAuthMiddleware(store, nil, "", "another-secret-another-secret-xx", false)
	_, ok = other.SessionID(req)
	assert.False(t, ok, "cookies signed with another key are rejected")
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Contains(t, buf.String(), "GET /health 418")
}

func TestQuotaLimiterAllow(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewQuotaLimiter(client, 2, time.Minute, false, log.New(io.Discard, "", 0))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, allowed, "quotas are per identifier")
}

func TestQuotaLimiterDisabled(t *testing.T) {
	limiter := NewQuotaLimiter(nil, 0, time.Minute, false, log.New(io.Discard, "", 0))

	allowed, err := limiter.Allow(context.Background(), "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestQuotaLimiterMiddleware(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewQuotaLimiter(client, 1, time.Minute, false, log.New(io.Discard, "", 0))
	handler := limiter.Limit(http.HandlerFunc(okHandler))

	search := func(target string) int {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, search("/api/search?q=alien"))
	assert.Equal(t, http.StatusTooManyRequests, search("/api/search?q=aliens"))
	assert.Equal(t, http.StatusOK, search("/api/search"), "empty queries are not counted")
}

func TestQuotaLimiterFailsOpen(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewQuotaLimiter(client, 1, time.Minute, false, log.New(io.Discard, "", 0))
	mr.Close()

	rec := httptest.NewRecorder()
	limiter.Limit(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies?q=heat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentifier(t *testing.T) {
	limiter := NewQuotaLimiter(nil, 1, time.Minute, false, log.New(io.Discard, "", 0))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "ip:192.0.2.1", limiter.identifier(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "ip:192.0.2.1", limiter.identifier(req), "forwarded header ignored without a trusted proxy")

	behindProxy := NewQuotaLimiter(nil, 1, time.Minute, true, log.New(io.Discard, "", 0))
	assert.Equal(t, "ip:203.0.113.7", behindProxy.identifier(req))

	id := uuid.New()
	req = req.WithContext(context.WithValue(req.Context(), UserIDContextKey, id))
	assert.Equal(t, "user:"+id.String(), limiter.identifier(req))
}

func TestQuotaLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewQuotaLimiter(client, 1, time.Minute, false, log.New(io.Discard, "", 0))
	handler := limiter.Limit(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/search?q=heat", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
