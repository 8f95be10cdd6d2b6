package services

import (
	"math"

	"github.com/liamwears/reelwrapped/internal/models"
)

const (
	// NoMoviesLabel is the taste label of an empty list
	NoMoviesLabel = "No movies yet"
	// UnknownGenre is reported when no favorite carries a genre
	UnknownGenre = "Unknown"
)

// ComputeWrappedStats summarizes a favorites list. An empty list reports a
// nil average rating rather than 0.
func ComputeWrappedStats(favorites []models.MovieRecord) models.WrappedStats {
	if len(favorites) == 0 {
		return models.WrappedStats{TasteLabel: NoMoviesLabel}
	}

	totalMinutes := 0
	ratingSum := 0.0
	for _, m := range favorites {
		totalMinutes += m.Runtime
		ratingSum += m.Rating
	}

	avg := roundToTenth(ratingSum / float64(len(favorites)))
	genre := mostCommonGenre(favorites)

	return models.WrappedStats{
		TotalMovies:         len(favorites),
		TotalRuntimeMinutes: totalMinutes,
		Hours:               totalMinutes / 60,
		Minutes:             totalMinutes % 60,
		MostCommonGenre:     &genre,
		AverageRating:       &avg,
		RatedMovies:         len(favorites),
		TasteLabel:          TasteLabel(avg),
	}
}

// TasteLabel grades an average rating; lower bounds are inclusive
func TasteLabel(avg float64) string {
	switch {
	case avg >= 8.5:
		return "You are a true connoisseur, hats off good man!"
	case avg >= 6.5:
		return "You have good taste"
	case avg >= 4.5:
		return "I see you watch most things"
	default:
		return "Bro, what are you watching?"
	}
}

// mostCommonGenre counts genres across all entries; among tied counts the
// genre seen first wins.
func mostCommonGenre(favorites []models.MovieRecord) string {
	counts := make(map[string]int)
	var order []string
	for _, m := range favorites {
		for _, g := range m.Genres {
			if _, seen := counts[g]; !seen {
				order = append(order, g)
			}
			counts[g]++
		}
	}

	best, bestCount := UnknownGenre, 0
	for _, g := range order {
		if counts[g] > bestCount {
			best, bestCount = g, counts[g]
		}
	}
	return best
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
