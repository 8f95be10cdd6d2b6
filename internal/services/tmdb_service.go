package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// TMDBService handles interactions with The Movie Database API
type TMDBService struct {
	client       *http.Client
	limiter      *rate.Limiter
	apiKey       string
	baseURL      string
	imageBaseURL string
}

// TMDBConfig holds TMDB service configuration
type TMDBConfig struct {
	APIKey            string
	BaseURL           string
	ImageBaseURL      string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// NewTMDBService creates a new TMDB service
func NewTMDBService(cfg TMDBConfig) *TMDBService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &TMDBService{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:      rate.NewLimiter(limit, 10),
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// TMDBMovie is an entry of a search or discover page
type TMDBMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	PosterPath  *string `json:"poster_path"`
	ReleaseDate *string `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	Overview    string  `json:"overview"`
}

// TMDBGenre is a genre tag on a movie detail
type TMDBGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TMDBMovieDetail is the response of /movie/{id}
type TMDBMovieDetail struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	IMDbID      string      `json:"imdb_id"`
	Runtime     *int        `json:"runtime"`
	Genres      []TMDBGenre `json:"genres"`
	VoteAverage float64     `json:"vote_average"`
}

// TMDBCrewMember is one crew credit of a movie
type TMDBCrewMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

// TMDBCredits is the response of /movie/{id}/credits
type TMDBCredits struct {
	ID   int              `json:"id"`
	Crew []TMDBCrewMember `json:"crew"`
}

// TMDBPerson is an entry of /search/person
type TMDBPerson struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	KnownForDepartment string `json:"known_for_department"`
}

// TMDBMovieResponse represents a movie search or discover response
type TMDBMovieResponse struct {
	Page         int         `json:"page"`
	Results      []TMDBMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// TMDBPersonResponse represents a person search response
type TMDBPersonResponse struct {
	Page    int          `json:"page"`
	Results []TMDBPerson `json:"results"`
}

// StatusError is returned when an upstream answers with a non-success status
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d, body: %s", e.Service, e.StatusCode, e.Body)
}

// doRequest performs an HTTP request to TMDB API and decodes the JSON body into out
func (s *TMDBService) doRequest(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Add authorization header
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Set("language", "en-US")
	q.Set("include_adult", "false")
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Service: "TMDB", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return nil
}

// GetMovie retrieves a movie detail by ID
func (s *TMDBService) GetMovie(ctx context.Context, movieID int) (*TMDBMovieDetail, error) {
	var movie TMDBMovieDetail
	if err := s.doRequest(ctx, fmt.Sprintf("/movie/%d", movieID), nil, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// GetCredits retrieves the cast and crew of a movie
func (s *TMDBService) GetCredits(ctx context.Context, movieID int) (*TMDBCredits, error) {
	var credits TMDBCredits
	if err := s.doRequest(ctx, fmt.Sprintf("/movie/%d/credits", movieID), nil, &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

// SearchMovies searches for movies by title
func (s *TMDBService) SearchMovies(ctx context.Context, query string, page int) (*TMDBMovieResponse, error) {
	if page < 1 {
		page = 1
	}

	params := url.Values{
		"query": {query},
		"page":  {strconv.Itoa(page)},
	}

	var response TMDBMovieResponse
	if err := s.doRequest(ctx, "/search/movie", params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SearchPeople searches for people by name
func (s *TMDBService) SearchPeople(ctx context.Context, query string) (*TMDBPersonResponse, error) {
	var response TMDBPersonResponse
	if err := s.doRequest(ctx, "/search/person", url.Values{"query": {query}}, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// DiscoverByCrew lists movies a person has any crew credit on, most popular first
func (s *TMDBService) DiscoverByCrew(ctx context.Context, personID int) (*TMDBMovieResponse, error) {
	params := url.Values{
		"with_crew": {strconv.Itoa(personID)},
		"sort_by":   {"popularity.desc"},
	}

	var response TMDBMovieResponse
	if err := s.doRequest(ctx, "/discover/movie", params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetImageURL returns the full URL for an image path, or nil when there is no path
func (s *TMDBService) GetImageURL(path *string) *string {
	if path == nil || *path == "" {
		return nil
	}
	u := s.imageBaseURL + *path
	return &u
}
