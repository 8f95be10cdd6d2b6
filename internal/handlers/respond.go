package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/google/uuid"

	"github.com/liamwears/reelwrapped/internal/models"
	"github.com/liamwears/reelwrapped/internal/services"
)

//go:embed static
var staticFS embed.FS

// Searcher runs title and director searches
type Searcher interface {
	Search(ctx context.Context, query string, mode services.SearchMode) []models.MovieRecord
}

// Favorites stores each user's favorites list
type Favorites interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.FavoriteEntry, error)
	Add(ctx context.Context, userID uuid.UUID, movie models.MovieRecord) (bool, error)
	Remove(ctx context.Context, userID uuid.UUID, movieID int) (bool, error)
}

// Accounts registers and authenticates users
type Accounts interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	FindOrCreate(ctx context.Context, providerID string, provider models.Provider, email, name string) (*models.User, error)
}

// Sessions issues login sessions and OAuth state tokens
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Delete(ctx context.Context, sessionID string) error
	NewState(ctx context.Context) (string, error)
	ConsumeState(ctx context.Context, state string) error
}

// StaticHandler serves the embedded assets under /static/
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

// writeJSON encodes v before committing status, so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusMessage is the reply shape of the favorites and account endpoints
type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
