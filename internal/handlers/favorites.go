package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/liamwears/reelwrapped/internal/middleware"
	"github.com/liamwears/reelwrapped/internal/models"
	"github.com/liamwears/reelwrapped/internal/services"
)

// FavoriteHandler handles favorites list requests
type FavoriteHandler struct {
	favorites Favorites
	logger    *log.Logger
}

// NewFavoriteHandler creates a new favorite handler
func NewFavoriteHandler(favorites Favorites, logger *log.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		favorites: favorites,
		logger:    logger,
	}
}

// parseFavoriteForm reads the fields the favorite buttons post.
// Only id and title are required.
func parseFavoriteForm(r *http.Request) (models.AddFavoriteInput, error) {
	var in models.AddFavoriteInput

	id, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("id")))
	if err != nil || id <= 0 {
		return in, errors.New("id must be a positive integer")
	}
	in.ID = id

	in.Title = strings.TrimSpace(r.PostFormValue("title"))
	if in.Title == "" {
		return in, errors.New("title is required")
	}

	if raw := strings.TrimSpace(r.PostFormValue("rating")); raw != "" {
		if in.Rating, err = strconv.ParseFloat(raw, 64); err != nil {
			return in, errors.New("rating must be a number")
		}
		if math.IsNaN(in.Rating) || math.IsInf(in.Rating, 0) || in.Rating < 0 || in.Rating > 10 {
			return in, errors.New("rating must be between 0 and 10")
		}
	}

	if raw := strings.TrimSpace(r.PostFormValue("runtime")); raw != "" {
		if in.Runtime, err = strconv.Atoi(raw); err != nil {
			return in, errors.New("runtime must be a whole number of minutes")
		}
		if in.Runtime < 0 {
			return in, errors.New("runtime cannot be negative")
		}
	}

	in.PosterURL = optional(r.PostFormValue("poster_url"))
	in.ReleaseDate = optional(r.PostFormValue("release_date"))
	in.Director = optional(r.PostFormValue("director"))
	in.Genres = splitGenres(r.PostFormValue("genres"))

	return in, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// splitGenres turns "Action, Drama" into its parts
func splitGenres(raw string) []string {
	genres := []string{}
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	return genres
}

// AddFavorite handles POST /add_favorite
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	input, err := parseFavoriteForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := h.favorites.Add(r.Context(), userID, input.Record())
	if err != nil {
		h.logger.Printf("Failed to add favorite: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to add favorite")
		return
	}

	if !added {
		writeJSON(w, http.StatusOK, statusMessage{Status: "exists", Message: "Already in list"})
		return
	}
	writeJSON(w, http.StatusOK, statusMessage{Status: "ok", Message: "Added"})
}

// RemoveFavorite handles POST /remove_favorite
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	movieID, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	if _, err := h.favorites.Remove(r.Context(), userID, movieID); err != nil {
		h.logger.Printf("Failed to remove favorite: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to remove favorite")
		return
	}

	writeJSON(w, http.StatusOK, statusMessage{Status: "ok", Message: "Removed"})
}

// List handles GET /api/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	favorites, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		h.logger.Printf("Failed to list favorites: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch favorites")
		return
	}
	if favorites == nil {
		favorites = []models.FavoriteEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"favorites": favorites})
}

// Create handles POST /api/favorites
func (h *FavoriteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	input, err := parseFavoriteForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := h.favorites.Add(r.Context(), userID, input.Record())
	if err != nil {
		h.logger.Printf("Failed to add favorite: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to add favorite")
		return
	}

	if !added {
		writeJSON(w, http.StatusOK, statusMessage{Status: "ok", Message: "Already in favorites"})
		return
	}
	writeJSON(w, http.StatusCreated, statusMessage{Status: "ok", Message: "Added to favorites"})
}

// Delete handles DELETE /api/favorites/{id}
func (h *FavoriteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	movieID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	removed, err := h.favorites.Remove(r.Context(), userID, movieID)
	if err != nil {
		h.logger.Printf("Failed to remove favorite: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to remove favorite")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Movie not found")
		return
	}

	writeJSON(w, http.StatusOK, statusMessage{Status: "ok", Message: "Removed"})
}

// Wrapped handles GET /api/wrapped
func (h *FavoriteHandler) Wrapped(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	favorites, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		h.logger.Printf("Failed to list favorites: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch favorites")
		return
	}

	writeJSON(w, http.StatusOK, services.ComputeWrappedStats(models.Records(favorites)))
}
