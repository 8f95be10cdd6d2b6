package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liamwears/reelwrapped/internal/models"
)

// Sort orders accepted by SortFavorites
const (
	SortByAdded   = "added"
	SortByRating  = "rating"
	SortByRelease = "release"
)

// FavoriteService stores each user's favorites list
type FavoriteService struct {
	db *pgxpool.Pool
}

// NewFavoriteService creates a new FavoriteService
func NewFavoriteService(db *pgxpool.Pool) *FavoriteService {
	return &FavoriteService{db: db}
}

const favoriteColumns = `"movieId", title, "posterUrl", "releaseDate", rating, director, runtime, genres, "addedAt"`

func scanFavorite(row pgx.Row) (models.FavoriteEntry, error) {
	var f models.FavoriteEntry
	err := row.Scan(
		&f.ID,
		&f.Title,
		&f.PosterURL,
		&f.ReleaseDate,
		&f.Rating,
		&f.Director,
		&f.Runtime,
		&f.Genres,
		&f.AddedAt,
	)
	if f.Genres == nil {
		f.Genres = []string{}
	}
	return f, err
}

// List returns a user's favorites in the order they were added
func (s *FavoriteService) List(ctx context.Context, userID uuid.UUID) ([]models.FavoriteEntry, error) {
	query := `SELECT ` + favoriteColumns + `
		FROM "Favorite"
		WHERE "userId" = $1
		ORDER BY id ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favorites := []models.FavoriteEntry{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorites: %w", err)
	}

	return favorites, nil
}

// Add saves a movie to the user's list. It returns false when a movie with
// the same id is already there.
func (s *FavoriteService) Add(ctx context.Context, userID uuid.UUID, movie models.MovieRecord) (bool, error) {
	if movie.ID == 0 || movie.Title == "" {
		return false, fmt.Errorf("favorite needs an id and a title")
	}
	genres := movie.Genres
	if genres == nil {
		genres = []string{}
	}

	query := `
		INSERT INTO "Favorite" ("userId", "movieId", title, "posterUrl", "releaseDate", rating, director, runtime, genres)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ("userId", "movieId") DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query,
		userID,
		movie.ID,
		movie.Title,
		movie.PosterURL,
		movie.ReleaseDate,
		movie.Rating,
		movie.Director,
		movie.Runtime,
		genres,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Remove deletes a movie from the user's list. It returns false when the
// movie was not on the list.
func (s *FavoriteService) Remove(ctx context.Context, userID uuid.UUID, movieID int) (bool, error) {
	query := `DELETE FROM "Favorite" WHERE "userId" = $1 AND "movieId" = $2`

	tag, err := s.db.Exec(ctx, query, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SortFavorites returns a sorted copy. Rating and release sort highest first
// unless reverse is set; "added" keeps insertion order and reverse flips it.
func SortFavorites(favorites []models.FavoriteEntry, by string, reverse bool) []models.FavoriteEntry {
	sorted := make([]models.FavoriteEntry, len(favorites))
	copy(sorted, favorites)

	switch by {
	case SortByRating:
		sort.SliceStable(sorted, func(i, j int) bool {
			if reverse {
				return sorted[i].Rating < sorted[j].Rating
			}
			return sorted[i].Rating > sorted[j].Rating
		})
	case SortByRelease:
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := releaseKey(sorted[i]), releaseKey(sorted[j])
			if reverse {
				return a < b
			}
			return a > b
		})
	default:
		if reverse {
			for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}

	return sorted
}

func releaseKey(f models.FavoriteEntry) string {
	if f.ReleaseDate == nil {
		return ""
	}
	return *f.ReleaseDate
}
