package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/liamwears/reelwrapped/internal/models"
	"github.com/liamwears/reelwrapped/internal/services"
)

// SearchHandler exposes movie search as JSON
type SearchHandler struct {
	search Searcher
	logger *log.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search Searcher, logger *log.Logger) *SearchHandler {
	return &SearchHandler{
		search: search,
		logger: logger,
	}
}

type searchResponse struct {
	Movies []models.MovieRecord `json:"movies"`
}

// Search handles GET /api/search?q=&type=film|director
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, searchResponse{Movies: []models.MovieRecord{}})
		return
	}

	mode := services.ParseSearchMode(r.URL.Query().Get("type"))
	movies := h.search.Search(r.Context(), query, mode)
	if movies == nil {
		movies = []models.MovieRecord{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Movies: movies})
}
