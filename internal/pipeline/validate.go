package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"cineflow/internal/dq"
	"cineflow/internal/rawstore"
)

// Validate runs the data-quality checks over the staged raw collections.
type Validate struct {
	Store rawstore.Store
	Log   zerolog.Logger
}

func (s *Validate) Run(ctx context.Context) error {
	ratings, err := s.Store.ReadCollection(ctx, rawstore.RatingsCollection)
	if err != nil {
		return err
	}
	if err := dq.ValidateRatings(ratings); err != nil {
		return err
	}

	movies, err := s.Store.ReadCollection(ctx, rawstore.MoviesCollection)
	if err != nil {
		return err
	}
	if err := dq.ValidateMovies(movies); err != nil {
		return err
	}

	s.Log.Info().
		Int("ratings", len(ratings)).
		Int("movies", len(movies)).
		Msg("data quality checks passed")
	return nil
}
