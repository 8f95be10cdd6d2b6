package models

// WrappedStats summarizes a favorites list. It is computed per request and never stored.
type WrappedStats struct {
	TotalMovies         int      `json:"total_movies"`
	TotalRuntimeMinutes int      `json:"total_runtime_minutes"`
	Hours               int      `json:"hours"`
	Minutes             int      `json:"minutes"`
	MostCommonGenre     *string  `json:"most_common_genre"`
	AverageRating       *float64 `json:"average_rating"`
	RatedMovies         int      `json:"rated_movies"`
	TasteLabel          string   `json:"taste_label"`
}
