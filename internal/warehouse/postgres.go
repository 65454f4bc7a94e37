package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cineflow/internal/errs"
)

// Postgres implements Warehouse on a single pgx connection. The pipeline is
// single-writer, so no pool is needed.
type Postgres struct {
	conn *pgx.Conn
}

func ConnectPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres connect: %v", errs.ErrStorageUnavailable, err)
	}
	return &Postgres{conn: conn}, nil
}

func (p *Postgres) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

func (p *Postgres) InitSchema(ctx context.Context) error {
	for _, ddl := range []string{GetDimMovieSchema(), GetDimUserSchema(), GetFactRatingSchema()} {
		if _, err := p.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("%w: init schema: %v", errs.ErrStorageUnavailable, err)
		}
	}
	return nil
}

func (p *Postgres) WithTx(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", errs.ErrStorageUnavailable, err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(&pgTx{tx: tx})
	return err
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) UpsertMovies(ctx context.Context, movies []DimMovie) error {
	b := &pgx.Batch{}
	for _, m := range movies {
		b.Queue(`
			INSERT INTO dim_movie (movie_id, title, genres)
			VALUES ($1, $2, $3)
			ON CONFLICT (movie_id)
			DO UPDATE SET title = EXCLUDED.title, genres = EXCLUDED.genres
		`, m.MovieID, m.Title, m.Genres)
	}
	return t.tx.SendBatch(ctx, b).Close()
}

func (t *pgTx) InsertUsers(ctx context.Context, userIDs []int64) error {
	b := &pgx.Batch{}
	for _, uid := range userIDs {
		b.Queue(`
			INSERT INTO dim_user (user_id)
			VALUES ($1)
			ON CONFLICT (user_id) DO NOTHING
		`, uid)
	}
	return t.tx.SendBatch(ctx, b).Close()
}

func (t *pgTx) InsertFacts(ctx context.Context, facts []FactRating) error {
	b := &pgx.Batch{}
	for _, f := range facts {
		b.Queue(`
			INSERT INTO fact_rating (user_id, movie_id, rating, rating_ts, rating_date)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, movie_id, rating_ts) DO NOTHING
		`, f.UserID, f.MovieID, f.Rating, f.RatingTS, f.RatingDate)
	}
	return t.tx.SendBatch(ctx, b).Close()
}

func (p *Postgres) EnsureIndexes(ctx context.Context) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_fact_rating_date ON fact_rating(rating_date)",
		"CREATE INDEX IF NOT EXISTS idx_fact_rating_movie ON fact_rating(movie_id)",
	}
	for _, stmt := range stmts {
		if _, err := p.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create index: %v", errs.ErrStorageUnavailable, err)
		}
	}
	return nil
}

func (p *Postgres) RebuildDailyMetrics(ctx context.Context) error {
	// CREATE IF NOT EXISTS materializes the first build; REFRESH tracks the
	// current fact_rating contents on every later run.
	create := `
		CREATE MATERIALIZED VIEW IF NOT EXISTS mv_daily_metrics AS
		SELECT
		  rating_date,
		  COUNT(*)::int AS ratings_cnt,
		  COUNT(DISTINCT user_id)::int AS users_active,
		  ROUND(AVG(rating)::numeric, 3) AS avg_rating
		FROM fact_rating
		GROUP BY rating_date
		ORDER BY rating_date
	`
	if _, err := p.conn.Exec(ctx, create); err != nil {
		return fmt.Errorf("%w: create mv_daily_metrics: %v", errs.ErrStorageUnavailable, err)
	}
	if _, err := p.conn.Exec(ctx, "REFRESH MATERIALIZED VIEW mv_daily_metrics"); err != nil {
		return fmt.Errorf("%w: refresh mv_daily_metrics: %v", errs.ErrStorageUnavailable, err)
	}
	return nil
}

func (p *Postgres) DailyMetrics(ctx context.Context, since string) ([]DailyMetric, error) {
	query := "SELECT rating_date, ratings_cnt, users_active, avg_rating FROM mv_daily_metrics"
	var args []any
	if since != "" {
		query += " WHERE rating_date >= $1"
		args = append(args, since)
	}
	query += " ORDER BY rating_date"

	rows, err := p.conn.Query(ctx, query, args...)
	if err != nil {
		if isUndefinedRelation(err) {
			// Admin stage has not run yet; the read contract tolerates it.
			return nil, nil
		}
		return nil, fmt.Errorf("%w: query mv_daily_metrics: %v", errs.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []DailyMetric
	for rows.Next() {
		var m DailyMetric
		if err := rows.Scan(&m.RatingDate, &m.RatingsCnt, &m.UsersActive, &m.AvgRating); err != nil {
			return nil, fmt.Errorf("%w: scan mv_daily_metrics: %v", errs.ErrStorageUnavailable, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) TopMovies(ctx context.Context, limit int) ([]MovieStats, error) {
	rows, err := p.conn.Query(ctx, `
		SELECT m.movie_id, m.title, m.genres,
		       COUNT(f.user_id) AS ratings,
		       ROUND(AVG(f.rating)::numeric, 2) AS avg_rating
		FROM fact_rating f
		JOIN dim_movie m ON m.movie_id = f.movie_id
		GROUP BY m.movie_id, m.title, m.genres
		HAVING COUNT(f.user_id) >= $1
		ORDER BY avg_rating DESC, ratings DESC
		LIMIT $2
	`, minRatingsForTop, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query top movies: %v", errs.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []MovieStats
	for rows.Next() {
		var s MovieStats
		if err := rows.Scan(&s.MovieID, &s.Title, &s.Genres, &s.Ratings, &s.AvgRating); err != nil {
			return nil, fmt.Errorf("%w: scan top movies: %v", errs.ErrStorageUnavailable, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) TopGenres(ctx context.Context, limit int) ([]GenreStats, error) {
	rows, err := p.conn.Query(ctx, `
		SELECT unnest(string_to_array(m.genres, '|')) AS genre,
		       COUNT(f.rating) AS total_ratings,
		       ROUND(AVG(f.rating)::numeric, 2) AS avg_rating
		FROM fact_rating f
		JOIN dim_movie m ON m.movie_id = f.movie_id
		GROUP BY genre
		HAVING COUNT(f.rating) >= $1
		ORDER BY avg_rating DESC, total_ratings DESC
		LIMIT $2
	`, minRatingsForTop, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query top genres: %v", errs.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []GenreStats
	for rows.Next() {
		var s GenreStats
		if err := rows.Scan(&s.Genre, &s.TotalRatings, &s.AvgRating); err != nil {
			return nil, fmt.Errorf("%w: scan top genres: %v", errs.ErrStorageUnavailable, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) FactCount(ctx context.Context) (int64, error) {
	var n int64
	if err := p.conn.QueryRow(ctx, "SELECT COUNT(*) FROM fact_rating").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count fact_rating: %v", errs.ErrStorageUnavailable, err)
	}
	return n, nil
}

func isUndefinedRelation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
