// Package warehouse is the relational star-schema store: dim_movie,
// dim_user, fact_rating and the mv_daily_metrics rollup. Two drivers
// implement it, Postgres (pgx) and MySQL (database/sql), selected by
// configuration. Conflict policy is fixed: movie upserts overwrite
// title/genres, user and fact inserts are insert-or-ignore on their keys.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"cineflow/internal/errs"
)

type DimMovie struct {
	MovieID int64
	Title   string
	Genres  string
}

type FactRating struct {
	UserID     int64
	MovieID    int64
	Rating     float64
	RatingTS   int64
	RatingDate time.Time
}

// DailyMetric is one row of the mv_daily_metrics rollup.
type DailyMetric struct {
	RatingDate  time.Time
	RatingsCnt  int
	UsersActive int
	AvgRating   float64
}

// MovieStats and GenreStats back the read-only query surface the API and
// dashboard consume.
type MovieStats struct {
	MovieID   int64
	Title     string
	Genres    string
	Ratings   int
	AvgRating float64
}

type GenreStats struct {
	Genre        string
	TotalRatings int
	AvgRating    float64
}

// Tx exposes the bulk write primitives available inside one warehouse
// transaction. The load stage must call UpsertMovies and InsertUsers before
// InsertFacts; facts reference dimensions by application-level convention,
// not by foreign key.
type Tx interface {
	UpsertMovies(ctx context.Context, movies []DimMovie) error
	InsertUsers(ctx context.Context, userIDs []int64) error
	InsertFacts(ctx context.Context, facts []FactRating) error
}

type Warehouse interface {
	// InitSchema creates the dimension and fact tables if absent.
	InitSchema(ctx context.Context) error

	// WithTx runs fn inside one ACID transaction, rolling back when fn
	// returns an error or panics.
	WithTx(ctx context.Context, fn func(Tx) error) error

	// EnsureIndexes creates the fact_rating lookup indexes if absent.
	EnsureIndexes(ctx context.Context) error

	// RebuildDailyMetrics fully recomputes mv_daily_metrics from
	// fact_rating. Safe to call repeatedly.
	RebuildDailyMetrics(ctx context.Context) error

	// DailyMetrics returns the rollup ordered by date, optionally filtered
	// to dates >= since (format 2006-01-02, empty for all). Returns an
	// empty result, not an error, when the rollup has never been built.
	DailyMetrics(ctx context.Context, since string) ([]DailyMetric, error)

	// TopMovies and TopGenres are the read contract of the external query
	// layer: join fact_rating with dim_movie, keep entries with at least
	// minRatingsForTop ratings, order by average rating then volume.
	TopMovies(ctx context.Context, limit int) ([]MovieStats, error)
	TopGenres(ctx context.Context, limit int) ([]GenreStats, error)

	FactCount(ctx context.Context) (int64, error)

	Close(ctx context.Context) error
}

// minRatingsForTop filters noise out of the top-movies and top-genres
// rankings.
const minRatingsForTop = 10

// Connect opens the warehouse selected by driver.
func Connect(ctx context.Context, driver, postgresDSN, mysqlDSN string) (Warehouse, error) {
	switch driver {
	case "postgres":
		return ConnectPostgres(ctx, postgresDSN)
	case "mysql":
		return ConnectMySQL(ctx, mysqlDSN)
	default:
		return nil, fmt.Errorf("%w: unsupported warehouse driver %q", errs.ErrConfiguration, driver)
	}
}
