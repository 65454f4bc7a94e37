// Package dq holds the data-quality predicates run over the staged raw
// collections. Checks are pure, all-or-nothing: the first failing rule
// aborts with a descriptive cause, nothing is collected.
package dq

import (
	"fmt"

	"cineflow/internal/errs"
	"cineflow/internal/rawstore"
)

// Error reports which rule failed. Count is nonzero only for rules that
// count violations (currently duplicate detection).
type Error struct {
	Rule   string
	Detail string
	Count  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

func (e *Error) Unwrap() error { return errs.ErrDataQuality }

// ValidateRatings checks the staged ratings collection: every rating in
// [0, 5], key fields non-null, and no duplicate (userId, movieId, timestamp)
// triples.
func ValidateRatings(records []rawstore.Record) error {
	for i, rec := range records {
		r, ok := rawstore.Float64Field(rec, "rating")
		if !ok || r < 0 || r > 5 {
			return &Error{
				Rule:   "rating_range",
				Detail: fmt.Sprintf("record %d: rating outside 0-5", i),
			}
		}
	}
	for i, rec := range records {
		for _, key := range []string{"userId", "movieId", "timestamp"} {
			if isNull(rec, key) {
				return &Error{
					Rule:   "rating_keys_null",
					Detail: fmt.Sprintf("record %d: %s is null", i, key),
				}
			}
		}
	}

	type triple struct {
		user, movie, ts int64
	}
	seen := make(map[triple]struct{}, len(records))
	dups := 0
	for _, rec := range records {
		user, _ := rawstore.Int64Field(rec, "userId")
		movie, _ := rawstore.Int64Field(rec, "movieId")
		ts, _ := rawstore.Int64Field(rec, "timestamp")
		k := triple{user, movie, ts}
		if _, dup := seen[k]; dup {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	if dups > 0 {
		return &Error{
			Rule:   "rating_duplicates",
			Detail: fmt.Sprintf("%d duplicate (userId, movieId, timestamp) rows", dups),
			Count:  dups,
		}
	}
	return nil
}

// ValidateMovies checks that movieId and title are non-null on every staged
// movie record.
func ValidateMovies(records []rawstore.Record) error {
	for i, rec := range records {
		if isNull(rec, "movieId") {
			return &Error{
				Rule:   "movie_id_null",
				Detail: fmt.Sprintf("record %d: movieId is null", i),
			}
		}
		if title, ok := rawstore.StringField(rec, "title"); !ok || title == "" {
			return &Error{
				Rule:   "movie_title_null",
				Detail: fmt.Sprintf("record %d: title is null", i),
			}
		}
	}
	return nil
}

// isNull treats an absent key, an explicit nil, and an empty string cell all
// as null, matching how empty CSV cells are staged.
func isNull(rec rawstore.Record, key string) bool {
	v, ok := rec[key]
	if !ok || v == nil {
		return true
	}
	if s, isStr := v.(string); isStr && s == "" {
		return true
	}
	return false
}
