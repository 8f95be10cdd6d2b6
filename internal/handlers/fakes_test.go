package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/reelwrapped/internal/database"
	"github.com/liamwears/reelwrapped/internal/middleware"
	"github.com/liamwears/reelwrapped/internal/models"
	"github.com/liamwears/reelwrapped/internal/services"
)

// fakeAccounts is an in-memory stand-in for the user service
type fakeAccounts struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.User
	passwords map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		byID:      map[uuid.UUID]*models.User{},
		passwords: map[string]string{},
	}
}

func (f *fakeAccounts) find(match func(*models.User) bool) *models.User {
	for _, u := range f.byID {
		if match(u) {
			return u
		}
	}
	return nil
}

func (f *fakeAccounts) Register(_ context.Context, username, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if username == "" || password == "" {
		return nil, services.ErrMissingCredentials
	}
	if f.find(func(u *models.User) bool { return u.Username == username }) != nil {
		return nil, services.ErrUserExists
	}

	user := &models.User{ID: uuid.New(), ProviderID: username, Provider: models.ProviderLocal, Username: username}
	f.byID[user.ID] = user
	f.passwords[username] = password
	return user, nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, username, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user := f.find(func(u *models.User) bool { return u.Username == username })
	if user == nil || f.passwords[username] != password {
		return nil, services.ErrInvalidCredentials
	}
	return user, nil
}

func (f *fakeAccounts) FindOrCreate(_ context.Context, providerID string, provider models.Provider, email, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user := f.find(func(u *models.User) bool { return u.Provider == provider && u.ProviderID == providerID }); user != nil {
		return user, nil
	}

	user := &models.User{ID: uuid.New(), ProviderID: providerID, Provider: provider, Email: email, Name: name}
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeAccounts) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, errors.New("no rows in result set")
}

// fakeFavorites keeps favorites lists in memory in insertion order
type fakeFavorites struct {
	mu    sync.Mutex
	lists map[uuid.UUID][]models.FavoriteEntry
	err   error
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{lists: map[uuid.UUID][]models.FavoriteEntry{}}
}

func (f *fakeFavorites) List(_ context.Context, userID uuid.UUID) ([]models.FavoriteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return append([]models.FavoriteEntry{}, f.lists[userID]...), nil
}

func (f *fakeFavorites) Add(_ context.Context, userID uuid.UUID, movie models.MovieRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}
	for _, e := range f.lists[userID] {
		if e.ID == movie.ID {
			return false, nil
		}
	}
	f.lists[userID] = append(f.lists[userID], models.FavoriteEntry{MovieRecord: movie, AddedAt: time.Now()})
	return true, nil
}

func (f *fakeFavorites) Remove(_ context.Context, userID uuid.UUID, movieID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}
	list := f.lists[userID]
	for i, e := range list {
		if e.ID == movieID {
			f.lists[userID] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakeSearcher returns canned results and records what it was asked
type fakeSearcher struct {
	mu      sync.Mutex
	results []models.MovieRecord
	queries []string
	modes   []services.SearchMode
}

func (f *fakeSearcher) Search(_ context.Context, query string, mode services.SearchMode) []models.MovieRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)
	f.modes = append(f.modes, mode)
	return f.results
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func ptr[T any](v T) *T {
	return &v
}

// testEnv wires the handlers to fakes, a real session store on miniredis
// and a signed-in user.
type testEnv struct {
	accounts  *fakeAccounts
	favorites *fakeFavorites
	searcher  *fakeSearcher
	store     *database.SessionStore
	auth      *middleware.AuthMiddleware
	renderer  *Renderer
	user      *models.User
	sessionID string
	cookie    *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &testEnv{
		accounts:  newFakeAccounts(),
		favorites: newFakeFavorites(),
		searcher:  &fakeSearcher{},
		store:     database.NewSessionStore(client, time.Hour),
	}
	env.auth = middleware.NewAuthMiddleware(env.store, env.accounts, "session", "0123456789abcdef0123456789abcdef", false)

	renderer, err := NewRenderer(discardLogger())
	require.NoError(t, err)
	env.renderer = renderer

	user, err := env.accounts.Register(context.Background(), "ada", "lovelace")
	require.NoError(t, err)
	env.user = user

	sessionID, err := env.store.Create(context.Background(), user.ID)
	require.NoError(t, err)
	env.sessionID = sessionID
	env.cookie = &http.Cookie{Name: "session", Value: env.auth.CookieValue(sessionID)}

	return env
}

func (e *testEnv) authHandler() *AuthHandler {
	return NewAuthHandler(e.accounts, e.store, e.auth, e.renderer, AuthConfig{CallbackHost: "http://localhost:8000"}, discardLogger())
}

func (e *testEnv) pageHandler() *PageHandler {
	return NewPageHandler(e.searcher, e.favorites, e.renderer, discardLogger())
}

func (e *testEnv) favoriteHandler() *FavoriteHandler {
	return NewFavoriteHandler(e.favorites, discardLogger())
}

// serve runs h behind RequireAuthAPI with the signed-in user's cookie
func (e *testEnv) serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(e.cookie)
	rec := httptest.NewRecorder()
	e.auth.RequireAuthAPI(h).ServeHTTP(rec, req)
	return rec
}

// page runs h behind RequireAuth with the signed-in user's cookie
func (e *testEnv) page(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(e.cookie)
	rec := httptest.NewRecorder()
	e.auth.RequireAuth(h).ServeHTTP(rec, req)
	return rec
}

// sessionUser follows the session cookie set on rec back to its user id
func (e *testEnv) sessionUser(t *testing.T, rec *httptest.ResponseRecorder) uuid.UUID {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	sessionID, ok := e.auth.SessionID(req)
	require.True(t, ok, "no signed session cookie set")

	userID, err := e.store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	return userID
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
