package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cineflow/internal/errs"
	"cineflow/internal/metrics"
	"cineflow/internal/rawstore"
	"cineflow/internal/warehouse"
)

// factBatchSize bounds the rows per fact insert statement.
const factBatchSize = 1000

// Load transforms the staged raw collections into warehouse rows and
// upserts them inside a single transaction: movies, then users, then facts.
// Extraction happens before the transaction opens, so a schema mismatch
// aborts with zero warehouse writes.
type Load struct {
	Store     rawstore.Store
	Warehouse warehouse.Warehouse
	Log       zerolog.Logger
}

func (s *Load) Run(ctx context.Context) error {
	ratings, err := s.Store.ReadCollection(ctx, rawstore.RatingsCollection)
	if err != nil {
		return err
	}
	movies, err := s.Store.ReadCollection(ctx, rawstore.MoviesCollection)
	if err != nil {
		return err
	}

	dimMovies, err := movieRows(movies)
	if err != nil {
		return err
	}
	userIDs, facts, err := ratingRows(ratings)
	if err != nil {
		return err
	}

	if err := s.Warehouse.InitSchema(ctx); err != nil {
		return err
	}

	lat := metrics.NewLatency()
	err = s.Warehouse.WithTx(ctx, func(tx warehouse.Tx) error {
		// Dimensions first: facts reference them by convention, not by
		// foreign key.
		start := time.Now()
		if err := tx.UpsertMovies(ctx, dimMovies); err != nil {
			return err
		}
		lat.Observe(time.Since(start))

		start = time.Now()
		if err := tx.InsertUsers(ctx, userIDs); err != nil {
			return err
		}
		lat.Observe(time.Since(start))

		for i := 0; i < len(facts); i += factBatchSize {
			end := i + factBatchSize
			if end > len(facts) {
				end = len(facts)
			}
			start = time.Now()
			if err := tx.InsertFacts(ctx, facts[i:end]); err != nil {
				return err
			}
			lat.Observe(time.Since(start))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Log.Info().
		Int("movies", len(dimMovies)).
		Int("users", len(userIDs)).
		Int("facts", len(facts)).
		Dur("write_p50", lat.Percentile(50)).
		Dur("write_p95", lat.Percentile(95)).
		Dur("write_p99", lat.Percentile(99)).
		Msg("warehouse load committed")
	return nil
}

// movieRows extracts the distinct movies to upsert. On duplicate movieId the
// later record wins, matching the effect of sequential upserts.
func movieRows(records []rawstore.Record) ([]warehouse.DimMovie, error) {
	order := make([]int64, 0, len(records))
	byID := make(map[int64]warehouse.DimMovie, len(records))
	for _, rec := range records {
		id, err := int64Field(rec, "movies", "movieId")
		if err != nil {
			return nil, err
		}
		title, err := stringField(rec, "movies", "title")
		if err != nil {
			return nil, err
		}
		genres, err := stringField(rec, "movies", "genres")
		if err != nil {
			return nil, err
		}
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = warehouse.DimMovie{MovieID: id, Title: title, Genres: genres}
	}
	out := make([]warehouse.DimMovie, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// ratingRows extracts the distinct user ids (first-seen order) and one fact
// row per raw rating, deriving the calendar date from the timestamp.
func ratingRows(records []rawstore.Record) ([]int64, []warehouse.FactRating, error) {
	var userIDs []int64
	seen := make(map[int64]struct{}, len(records))
	facts := make([]warehouse.FactRating, 0, len(records))

	for _, rec := range records {
		userID, err := int64Field(rec, "ratings", "userId")
		if err != nil {
			return nil, nil, err
		}
		movieID, err := int64Field(rec, "ratings", "movieId")
		if err != nil {
			return nil, nil, err
		}
		rating, err := float64Field(rec, "ratings", "rating")
		if err != nil {
			return nil, nil, err
		}
		ts, err := int64Field(rec, "ratings", "timestamp")
		if err != nil {
			return nil, nil, err
		}

		if _, dup := seen[userID]; !dup {
			seen[userID] = struct{}{}
			userIDs = append(userIDs, userID)
		}
		facts = append(facts, warehouse.FactRating{
			UserID:     userID,
			MovieID:    movieID,
			Rating:     rating,
			RatingTS:   ts,
			RatingDate: DateFromUnix(ts),
		})
	}
	return userIDs, facts, nil
}

func int64Field(rec rawstore.Record, dataset, name string) (int64, error) {
	v, ok := rawstore.Int64Field(rec, name)
	if !ok {
		return 0, fmt.Errorf("%w: %s dataset missing column %q", errs.ErrSchemaMismatch, dataset, name)
	}
	return v, nil
}

func float64Field(rec rawstore.Record, dataset, name string) (float64, error) {
	v, ok := rawstore.Float64Field(rec, name)
	if !ok {
		return 0, fmt.Errorf("%w: %s dataset missing column %q", errs.ErrSchemaMismatch, dataset, name)
	}
	return v, nil
}

func stringField(rec rawstore.Record, dataset, name string) (string, error) {
	v, ok := rawstore.StringField(rec, name)
	if !ok {
		return "", fmt.Errorf("%w: %s dataset missing column %q", errs.ErrSchemaMismatch, dataset, name)
	}
	return v, nil
}
