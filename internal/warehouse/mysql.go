package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"

	"cineflow/internal/errs"
)

// MySQL implements Warehouse through database/sql. MySQL has no
// materialized views, so mv_daily_metrics is a plain table rebuilt by the
// admin stage. The DSN must carry parseTime=true so DATE columns scan into
// time.Time.
type MySQL struct {
	db *sql.DB
}

func ConnectMySQL(ctx context.Context, dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: mysql open: %v", errs.ErrStorageUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: mysql ping: %v", errs.ErrStorageUnavailable, err)
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) Close(ctx context.Context) error {
	return m.db.Close()
}

func (m *MySQL) InitSchema(ctx context.Context) error {
	for _, ddl := range []string{GetDimMovieSchema(), GetDimUserSchema(), GetFactRatingSchema()} {
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%w: init schema: %v", errs.ErrStorageUnavailable, err)
		}
	}
	return nil
}

func (m *MySQL) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", errs.ErrStorageUnavailable, err)
	}
	if err := fn(&myTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type myTx struct {
	tx *sql.Tx
}

func (t *myTx) UpsertMovies(ctx context.Context, movies []DimMovie) error {
	if len(movies) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(movies))
	args := make([]any, 0, len(movies)*3)
	for _, mv := range movies {
		placeholders = append(placeholders, "(?, ?, ?)")
		args = append(args, mv.MovieID, mv.Title, mv.Genres)
	}
	stmt := fmt.Sprintf(`
		INSERT INTO dim_movie (movie_id, title, genres) VALUES %s
		ON DUPLICATE KEY UPDATE title = VALUES(title), genres = VALUES(genres)
	`, strings.Join(placeholders, ","))
	_, err := t.tx.ExecContext(ctx, stmt, args...)
	return err
}

func (t *myTx) InsertUsers(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(userIDs))
	args := make([]any, 0, len(userIDs))
	for _, uid := range userIDs {
		placeholders = append(placeholders, "(?)")
		args = append(args, uid)
	}
	stmt := fmt.Sprintf("INSERT IGNORE INTO dim_user (user_id) VALUES %s", strings.Join(placeholders, ","))
	_, err := t.tx.ExecContext(ctx, stmt, args...)
	return err
}

func (t *myTx) InsertFacts(ctx context.Context, facts []FactRating) error {
	if len(facts) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(facts))
	args := make([]any, 0, len(facts)*5)
	for _, f := range facts {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
		args = append(args, f.UserID, f.MovieID, f.Rating, f.RatingTS, f.RatingDate)
	}
	stmt := fmt.Sprintf(`
		INSERT IGNORE INTO fact_rating (user_id, movie_id, rating, rating_ts, rating_date) VALUES %s
	`, strings.Join(placeholders, ","))
	_, err := t.tx.ExecContext(ctx, stmt, args...)
	return err
}

func (m *MySQL) EnsureIndexes(ctx context.Context) error {
	// MySQL lacks CREATE INDEX IF NOT EXISTS; consult information_schema.
	indexes := []struct {
		name string
		stmt string
	}{
		{"idx_fact_rating_date", "CREATE INDEX idx_fact_rating_date ON fact_rating(rating_date)"},
		{"idx_fact_rating_movie", "CREATE INDEX idx_fact_rating_movie ON fact_rating(movie_id)"},
	}
	for _, idx := range indexes {
		var n int
		err := m.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = 'fact_rating' AND index_name = ?
		`, idx.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("%w: check index %s: %v", errs.ErrStorageUnavailable, idx.name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := m.db.ExecContext(ctx, idx.stmt); err != nil {
			return fmt.Errorf("%w: create index %s: %v", errs.ErrStorageUnavailable, idx.name, err)
		}
	}
	return nil
}

func (m *MySQL) RebuildDailyMetrics(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, "DROP TABLE IF EXISTS mv_daily_metrics"); err != nil {
		return fmt.Errorf("%w: drop mv_daily_metrics: %v", errs.ErrStorageUnavailable, err)
	}
	create := `
		CREATE TABLE mv_daily_metrics AS
		SELECT
		  rating_date,
		  COUNT(*) AS ratings_cnt,
		  COUNT(DISTINCT user_id) AS users_active,
		  ROUND(AVG(rating), 3) AS avg_rating
		FROM fact_rating
		GROUP BY rating_date
		ORDER BY rating_date
	`
	if _, err := m.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%w: rebuild mv_daily_metrics: %v", errs.ErrStorageUnavailable, err)
	}
	return nil
}

func (m *MySQL) DailyMetrics(ctx context.Context, since string) ([]DailyMetric, error) {
	query := "SELECT rating_date, ratings_cnt, users_active, avg_rating FROM mv_daily_metrics"
	var args []any
	if since != "" {
		query += " WHERE rating_date >= ?"
		args = append(args, since)
	}
	query += " ORDER BY rating_date"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: query mv_daily_metrics: %v", errs.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []DailyMetric
	for rows.Next() {
		var dm DailyMetric
		if err := rows.Scan(&dm.RatingDate, &dm.RatingsCnt, &dm.UsersActive, &dm.AvgRating); err != nil {
			return nil, fmt.Errorf("%w: scan mv_daily_metrics: %v", errs.ErrStorageUnavailable, err)
		}
		out = append(out, dm)
	}
	return out, rows.Err()
}

func (m *MySQL) TopMovies(ctx context.Context, limit int) ([]MovieStats, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT m.movie_id, m.title, m.genres,
		       COUNT(f.user_id) AS ratings,
		       ROUND(AVG(f.rating), 2) AS avg_rating
		FROM fact_rating f
		JOIN dim_movie m ON m.movie_id = f.movie_id
		GROUP BY m.movie_id, m.title, m.genres
		HAVING COUNT(f.user_id) >= ?
		ORDER BY avg_rating DESC, ratings DESC
		LIMIT ?
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

func (m *MySQL) TopGenres(ctx context.Context, limit int) ([]GenreStats, error) {
	// MySQL has no unnest, so the pipe-delimited genres are split in Go.
	rows, err := m.db.QueryContext(ctx, `
		SELECT m.genres, f.rating
		FROM fact_rating f
		JOIN dim_movie m ON m.movie_id = f.movie_id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query genre ratings: %v", errs.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	type acc struct {
		count int
		sum   float64
	}
	byGenre := map[string]*acc{}
	for rows.Next() {
		var genres string
		var rating float64
		if err := rows.Scan(&genres, &rating); err != nil {
			return nil, fmt.Errorf("%w: scan genre ratings: %v", errs.ErrStorageUnavailable, err)
		}
		for _, g := range strings.Split(genres, "|") {
			if g == "" {
				continue
			}
			a := byGenre[g]
			if a == nil {
				a = &acc{}
				byGenre[g] = a
			}
			a.count++
			a.sum += rating
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: genre ratings cursor: %v", errs.ErrStorageUnavailable, err)
	}

	out := make([]GenreStats, 0, len(byGenre))
	for g, a := range byGenre {
		if a.count < minRatingsForTop {
			continue
		}
		avg := math.Round(a.sum/float64(a.count)*100) / 100
		out = append(out, GenreStats{Genre: g, TotalRatings: a.count, AvgRating: avg})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgRating != out[j].AvgRating {
			return out[i].AvgRating > out[j].AvgRating
		}
		return out[i].TotalRatings > out[j].TotalRatings
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MySQL) FactCount(ctx context.Context) (int64, error) {
	var n int64
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fact_rating").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count fact_rating: %v", errs.ErrStorageUnavailable, err)
	}
	return n, nil
}

func isMissingTable(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1146
}
