package models

import (
	"time"
)

// UnknownReleaseDate is used when the upstream record carries no release date
const UnknownReleaseDate = "Unknown"

// MovieRecord is one normalized movie built from TMDB and OMDb data
type MovieRecord struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	PosterURL   *string  `json:"poster_url"`
	ReleaseDate *string  `json:"release_date"`
	Rating      float64  `json:"rating"`
	Director    *string  `json:"director"`
	Runtime     int      `json:"runtime"`
	Genres      []string `json:"genres"`
}

// FavoriteEntry is a MovieRecord saved in a user's list
type FavoriteEntry struct {
	MovieRecord
	AddedAt time.Time `json:"added_at"`
}

// AddFavoriteInput represents the form posted by the favorite buttons
type AddFavoriteInput struct {
	ID          int
	Title       string
	PosterURL   *string
	ReleaseDate *string
	Rating      float64
	Director    *string
	Runtime     int
	Genres      []string
}

// Record converts the input into the record that gets stored
func (in AddFavoriteInput) Record() MovieRecord {
	genres := in.Genres
	if genres == nil {
		genres = []string{}
	}
	return MovieRecord{
		ID:          in.ID,
		Title:       in.Title,
		PosterURL:   in.PosterURL,
		ReleaseDate: in.ReleaseDate,
		Rating:      in.Rating,
		Director:    in.Director,
		Runtime:     in.Runtime,
		Genres:      genres,
	}
}

// Records strips the bookkeeping fields off a favorites list
func Records(entries []FavoriteEntry) []MovieRecord {
	out := make([]MovieRecord, len(entries))
	for i, e := range entries {
		out[i] = e.MovieRecord
	}
	return out
}
