package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// omdbUnavailable is what OMDb puts in a field it has no value for
const omdbUnavailable = "N/A"

// OMDBService fetches IMDb ratings from the OMDb API
type OMDBService struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// OMDBConfig holds OMDb service configuration
type OMDBConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewOMDBService creates a new OMDb service
func NewOMDBService(cfg OMDBConfig) *OMDBService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &OMDBService{
		client:  &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// OMDBResponse is the subset of the OMDb title payload we read
type OMDBResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	ImdbID     string `json:"imdbID"`
	ImdbRating string `json:"imdbRating"`
}

// IsConfigured reports whether an API key was supplied
func (s *OMDBService) IsConfigured() bool {
	return s != nil && s.apiKey != ""
}

// GetRating returns the IMDb rating for an IMDb id. ok is false when OMDb has
// no usable rating for the title.
func (s *OMDBService) GetRating(ctx context.Context, imdbID string) (rating float64, ok bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/", nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("i", imdbID)
	q.Set("apikey", s.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, false, &StatusError{Service: "OMDb", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload OMDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, false, fmt.Errorf("failed to decode OMDb response: %w", err)
	}

	rating, ok = parseRating(payload.ImdbRating)
	return rating, ok, nil
}

// parseRating accepts OMDb rating strings like "8.8"; "N/A", empty and
// malformed values yield ok=false.
func parseRating(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == omdbUnavailable {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
