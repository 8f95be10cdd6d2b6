package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const testTMDBKey = "test-key"

// fakeMovie is one movie the fake TMDB knows about
type fakeMovie struct {
	ID          int
	Title       string
	PosterPath  string
	ReleaseDate string
	VoteAverage float64
	IMDbID      string
	Runtime     int
	Genres      []string
	Crew        []TMDBCrewMember
	// DetailStatus overrides the /movie/{id} status when non-zero
	DetailStatus int
	// CreditsStatus overrides the /movie/{id}/credits status when non-zero
	CreditsStatus int
}

// fakeTMDB serves the handful of TMDB v3 endpoints the search service uses
type fakeTMDB struct {
	mu       sync.Mutex
	movies   map[int]fakeMovie
	search   []int
	people   []TMDBPerson
	discover []int
	status   map[string]int
	calls    map[string]int
}

func newFakeTMDB() *fakeTMDB {
	return &fakeTMDB{
		movies: map[int]fakeMovie{},
		status: map[string]int{},
		calls:  map[string]int{},
	}
}

func (f *fakeTMDB) add(movies ...fakeMovie) {
	for _, m := range movies {
		f.movies[m.ID] = m
	}
}

func (f *fakeTMDB) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for path, c := range f.calls {
		if strings.HasPrefix(path, prefix) {
			n += c
		}
	}
	return n
}

func (f *fakeTMDB) totalCalls() int {
	return f.callCount("/")
}

func (f *fakeTMDB) listItem(id int) map[string]any {
	m := f.movies[id]
	item := map[string]any{
		"id":           m.ID,
		"title":        m.Title,
		"vote_average": m.VoteAverage,
	}
	if m.PosterPath != "" {
		item["poster_path"] = m.PosterPath
	} else {
		item["poster_path"] = nil
	}
	if m.ReleaseDate != "" {
		item["release_date"] = m.ReleaseDate
	}
	return item
}

func (f *fakeTMDB) page(ids []int) map[string]any {
	results := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		results = append(results, f.listItem(id))
	}
	return map[string]any{"page": 1, "results": results, "total_results": len(results), "total_pages": 1}
}

func (f *fakeTMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	status := f.status[r.URL.Path]
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+testTMDBKey {
		http.Error(w, `{"status_message":"Invalid API key"}`, http.StatusUnauthorized)
		return
	}
	if status != 0 {
		http.Error(w, `{"status_message":"forced failure"}`, status)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/search/movie":
		writeJSON(w, f.page(f.search))
	case path == "/search/person":
		writeJSON(w, map[string]any{"page": 1, "results": f.people})
	case path == "/discover/movie":
		if r.URL.Query().Get("sort_by") != "popularity.desc" || r.URL.Query().Get("with_crew") == "" {
			http.Error(w, "bad discover query", http.StatusBadRequest)
			return
		}
		writeJSON(w, f.page(f.discover))
	case strings.HasPrefix(path, "/movie/"):
		f.serveMovie(w, strings.TrimPrefix(path, "/movie/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTMDB) serveMovie(w http.ResponseWriter, rest string) {
	parts := strings.Split(rest, "/")
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		http.NotFound(w, nil)
		return
	}
	m, ok := f.movies[id]
	if !ok {
		http.Error(w, `{"status_message":"not found"}`, http.StatusNotFound)
		return
	}

	if len(parts) == 2 && parts[1] == "credits" {
		if m.CreditsStatus != 0 {
			http.Error(w, "credits failure", m.CreditsStatus)
			return
		}
		writeJSON(w, TMDBCredits{ID: m.ID, Crew: m.Crew})
		return
	}

	if m.DetailStatus != 0 {
		http.Error(w, "detail failure", m.DetailStatus)
		return
	}
	genres := make([]TMDBGenre, len(m.Genres))
	for i, g := range m.Genres {
		genres[i] = TMDBGenre{ID: i + 1, Name: g}
	}
	writeJSON(w, map[string]any{
		"id":           m.ID,
		"title":        m.Title,
		"imdb_id":      m.IMDbID,
		"runtime":      m.Runtime,
		"genres":       genres,
		"vote_average": m.VoteAverage,
	})
}

// fakeOMDB answers rating lookups from a map of imdb id to raw rating string
type fakeOMDB struct {
	mu      sync.Mutex
	ratings map[string]string
	status  int
	calls   int
}

func (f *fakeOMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, "omdb failure", status)
		return
	}
	rating, ok := f.ratings[r.URL.Query().Get("i")]
	if !ok {
		writeJSON(w, OMDBResponse{Response: "False", Error: "Incorrect IMDb ID."})
		return
	}
	writeJSON(w, OMDBResponse{Response: "True", ImdbID: r.URL.Query().Get("i"), ImdbRating: rating})
}

func (f *fakeOMDB) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("encode fake response: %v", err))
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestSearchService wires real TMDB/OMDb clients to the fakes. Pass a nil
// omdb to run without a secondary rating key.
func newTestSearchService(t *testing.T, tmdb *fakeTMDB, omdb *fakeOMDB) *SearchService {
	t.Helper()

	tmdbServer := httptest.NewServer(tmdb)
	t.Cleanup(tmdbServer.Close)

	tmdbService := NewTMDBService(TMDBConfig{
		APIKey:       testTMDBKey,
		BaseURL:      tmdbServer.URL,
		ImageBaseURL: "https://image.tmdb.org/t/p/w342",
	})

	omdbConfig := OMDBConfig{}
	if omdb != nil {
		omdbServer := httptest.NewServer(omdb)
		t.Cleanup(omdbServer.Close)
		omdbConfig = OMDBConfig{APIKey: "omdb-key", BaseURL: omdbServer.URL}
	}

	return NewSearchService(tmdbService, NewOMDBService(omdbConfig), discardLogger())
}
