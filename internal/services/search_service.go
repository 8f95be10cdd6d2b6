package services

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/liamwears/reelwrapped/internal/models"
)

const (
	titleResultLimit       = 10
	directorCandidateLimit = 20
	directorResultLimit    = 10
	enrichConcurrency      = 4
	directorJob            = "Director"
)

// SearchMode selects which resolver handles a query
type SearchMode string

const (
	SearchModeTitle    SearchMode = "title"
	SearchModeDirector SearchMode = "director"
)

// ParseSearchMode maps the "type" form value to a mode. Anything other than
// "director" searches by title, which also covers the legacy "film" value.
func ParseSearchMode(raw string) SearchMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(SearchModeDirector)) {
		return SearchModeDirector
	}
	return SearchModeTitle
}

// MetadataProvider is the primary movie source (TMDB)
type MetadataProvider interface {
	SearchMovies(ctx context.Context, query string, page int) (*TMDBMovieResponse, error)
	SearchPeople(ctx context.Context, query string) (*TMDBPersonResponse, error)
	DiscoverByCrew(ctx context.Context, personID int) (*TMDBMovieResponse, error)
	GetMovie(ctx context.Context, movieID int) (*TMDBMovieDetail, error)
	GetCredits(ctx context.Context, movieID int) (*TMDBCredits, error)
	GetImageURL(path *string) *string
}

// RatingProvider is the secondary rating source (OMDb), keyed by IMDb id
type RatingProvider interface {
	IsConfigured() bool
	GetRating(ctx context.Context, imdbID string) (float64, bool, error)
}

// SearchService turns upstream search results into MovieRecords. It never
// returns errors: upstream failures shrink the result instead.
type SearchService struct {
	tmdb    MetadataProvider
	ratings RatingProvider
	logger  *log.Logger
	debug   bool
}

// NewSearchService creates a search service. ratings may be nil.
func NewSearchService(tmdb MetadataProvider, ratings RatingProvider, logger *log.Logger) *SearchService {
	return &SearchService{
		tmdb:    tmdb,
		ratings: ratings,
		logger:  logger,
	}
}

// SetDebug turns on logging of per-movie enrichment failures
func (s *SearchService) SetDebug(debug bool) {
	s.debug = debug
}

func (s *SearchService) debugf(format string, args ...any) {
	if s.debug {
		s.logger.Printf(format, args...)
	}
}

// movieDetails is the best-effort enrichment for one movie id
type movieDetails struct {
	director   *string
	runtime    int
	genres     []string
	imdbRating *float64
}

// Search dispatches on mode
func (s *SearchService) Search(ctx context.Context, query string, mode SearchMode) []models.MovieRecord {
	if mode == SearchModeDirector {
		return s.SearchByDirector(ctx, query)
	}
	return s.SearchByTitle(ctx, query)
}

// SearchByTitle returns up to 10 enriched title matches in upstream order
func (s *SearchService) SearchByTitle(ctx context.Context, query string) []models.MovieRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.MovieRecord{}
	}

	resp, err := s.tmdb.SearchMovies(ctx, query, 1)
	if err != nil {
		s.logger.Printf("Title search for %q failed: %v", query, err)
		return []models.MovieRecord{}
	}

	items := resp.Results
	if len(items) > titleResultLimit {
		items = items[:titleResultLimit]
	}

	records := make([]models.MovieRecord, len(items))
	var g errgroup.Group
	g.SetLimit(enrichConcurrency)
	for i, item := range items {
		g.Go(func() error {
			records[i] = s.buildRecord(item, s.fetchDetails(ctx, item.ID))
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// SearchByDirector resolves the query to a person, then keeps the movies
// from that person's crew credits whose director actually matches the query.
func (s *SearchService) SearchByDirector(ctx context.Context, query string) []models.MovieRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.MovieRecord{}
	}

	people, err := s.tmdb.SearchPeople(ctx, query)
	if err != nil {
		s.logger.Printf("Person search for %q failed: %v", query, err)
		return []models.MovieRecord{}
	}
	if len(people.Results) == 0 || people.Results[0].ID == 0 {
		return []models.MovieRecord{}
	}
	person := people.Results[0]

	discovered, err := s.tmdb.DiscoverByCrew(ctx, person.ID)
	if err != nil {
		s.logger.Printf("Discover for person %d failed: %v", person.ID, err)
		return []models.MovieRecord{}
	}

	candidates := discovered.Results
	if len(candidates) > directorCandidateLimit {
		candidates = candidates[:directorCandidateLimit]
	}

	// with_crew matches every crew role, so each candidate is checked
	// against its own credits.
	needle := strings.ToLower(query)
	records := []models.MovieRecord{}
	for _, item := range candidates {
		if len(records) >= directorResultLimit || ctx.Err() != nil {
			break
		}
		details := s.fetchDetails(ctx, item.ID)
		if details.director == nil || !strings.Contains(strings.ToLower(*details.director), needle) {
			continue
		}
		records = append(records, s.buildRecord(item, details))
	}

	return records
}

// fetchDetails loads detail, then credits and the OMDb rating in parallel.
// A failed detail fetch yields an empty bundle; failed branches leave their
// field unset and are only logged in debug mode.
func (s *SearchService) fetchDetails(ctx context.Context, movieID int) movieDetails {
	detail, err := s.tmdb.GetMovie(ctx, movieID)
	if err != nil {
		s.debugf("Movie %d: detail unavailable: %v", movieID, err)
		return movieDetails{genres: []string{}}
	}

	details := movieDetails{genres: genreNames(detail.Genres)}
	if detail.Runtime != nil && *detail.Runtime > 0 {
		details.runtime = *detail.Runtime
	}

	var (
		director   *string
		imdbRating *float64
		g          errgroup.Group
	)

	g.Go(func() error {
		credits, err := s.tmdb.GetCredits(ctx, movieID)
		if err != nil {
			s.debugf("Movie %d: credits unavailable: %v", movieID, err)
			return nil
		}
		director = firstDirector(credits.Crew)
		return nil
	})

	if detail.IMDbID != "" && s.ratings != nil && s.ratings.IsConfigured() {
		g.Go(func() error {
			rating, ok, err := s.ratings.GetRating(ctx, detail.IMDbID)
			if err != nil {
				s.debugf("Movie %d: OMDb rating unavailable: %v", movieID, err)
				return nil
			}
			if ok {
				imdbRating = &rating
			}
			return nil
		})
	}

	_ = g.Wait()

	details.director = director
	details.imdbRating = imdbRating
	return details
}

// buildRecord merges a search hit with its enrichment
func (s *SearchService) buildRecord(item TMDBMovie, details movieDetails) models.MovieRecord {
	rating := item.VoteAverage
	if details.imdbRating != nil && *details.imdbRating > 0 {
		rating = *details.imdbRating
	}

	releaseDate := models.UnknownReleaseDate
	if item.ReleaseDate != nil && *item.ReleaseDate != "" {
		releaseDate = *item.ReleaseDate
	}

	genres := details.genres
	if genres == nil {
		genres = []string{}
	}

	return models.MovieRecord{
		ID:          item.ID,
		Title:       item.Title,
		PosterURL:   s.tmdb.GetImageURL(item.PosterPath),
		ReleaseDate: &releaseDate,
		Rating:      rating,
		Director:    details.director,
		Runtime:     details.runtime,
		Genres:      genres,
	}
}

func firstDirector(crew []TMDBCrewMember) *string {
	for _, member := range crew {
		if member.Job == directorJob {
			name := member.Name
			return &name
		}
	}
	return nil
}

func genreNames(genres []TMDBGenre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}
