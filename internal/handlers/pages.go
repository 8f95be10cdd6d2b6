package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/liamwears/reelwrapped/internal/middleware"
	"github.com/liamwears/reelwrapped/internal/models"
	"github.com/liamwears/reelwrapped/internal/services"
)

// PageHandler handles page rendering
type PageHandler struct {
	search    Searcher
	favorites Favorites
	renderer  *Renderer
	logger    *log.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(search Searcher, favorites Favorites, renderer *Renderer, logger *log.Logger) *PageHandler {
	return &PageHandler{
		search:    search,
		favorites: favorites,
		renderer:  renderer,
		logger:    logger,
	}
}

// Index handles GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/movies", http.StatusSeeOther)
}

// Movies handles GET /movies
func (h *PageHandler) Movies(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	mode := services.ParseSearchMode(r.URL.Query().Get("type"))

	movies := []models.MovieRecord{}
	if query != "" {
		movies = h.search.Search(r.Context(), query, mode)
	}

	data := map[string]interface{}{
		"Title":      "Search",
		"User":       user,
		"ActivePage": "movies",
		"Query":      query,
		"Mode":       string(mode),
		"Movies":     movies,
	}

	h.renderer.RenderPage(w, "movies.html", data)
}

// MyList handles GET /my_list?sort=added|rating|release&reverse=true|false
func (h *PageHandler) MyList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sortBy := r.URL.Query().Get("sort")
	switch sortBy {
	case services.SortByRating, services.SortByRelease:
	default:
		sortBy = services.SortByAdded
	}
	reverse, _ := strconv.ParseBool(r.URL.Query().Get("reverse"))

	favorites, err := h.favorites.List(r.Context(), user.ID)
	if err != nil {
		h.logger.Printf("Failed to list favorites: %v", err)
		http.Error(w, "Failed to fetch favorites", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Title":      "My list",
		"User":       user,
		"ActivePage": "my_list",
		"Favorites":  services.SortFavorites(favorites, sortBy, reverse),
		"SortBy":     sortBy,
		"Reverse":    reverse,
	}

	h.renderer.RenderPage(w, "my_list.html", data)
}

// Wrapped handles GET /wrapped
func (h *PageHandler) Wrapped(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	favorites, err := h.favorites.List(r.Context(), user.ID)
	if err != nil {
		h.logger.Printf("Failed to list favorites: %v", err)
		http.Error(w, "Failed to fetch favorites", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Title":      "Wrapped",
		"User":       user,
		"ActivePage": "wrapped",
		"Stats":      services.ComputeWrappedStats(models.Records(favorites)),
	}

	h.renderer.RenderPage(w, "wrapped.html", data)
}
