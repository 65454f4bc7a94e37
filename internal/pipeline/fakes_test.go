package pipeline

import (
	"context"

	"cineflow/internal/rawstore"
	"cineflow/internal/warehouse"
)

type fakeStore struct {
	collections map[string][]rawstore.Record
	replaceErr  error
	readErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: map[string][]rawstore.Record{}}
}

func (s *fakeStore) ReplaceCollection(_ context.Context, name string, records []rawstore.Record) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.collections[name] = records
	return nil
}

func (s *fakeStore) ReadCollection(_ context.Context, name string) ([]rawstore.Record, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.collections[name], nil
}

func (s *fakeStore) Close(context.Context) error { return nil }

type factKey struct {
	user, movie, ts int64
}

// fakeWarehouse mirrors the drivers' conflict policies in memory: movie
// upserts overwrite, user and fact inserts are ignored on conflict. Writes
// go to transaction-local copies and merge only on commit.
type fakeWarehouse struct {
	initCalls    int
	indexCalls   int
	rebuildCalls int
	ops          []string

	movies map[int64]warehouse.DimMovie
	users  map[int64]struct{}
	facts  map[factKey]warehouse.FactRating
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		movies: map[int64]warehouse.DimMovie{},
		users:  map[int64]struct{}{},
		facts:  map[factKey]warehouse.FactRating{},
	}
}

func (w *fakeWarehouse) InitSchema(context.Context) error {
	w.initCalls++
	w.ops = append(w.ops, "init_schema")
	return nil
}

func (w *fakeWarehouse) WithTx(_ context.Context, fn func(warehouse.Tx) error) error {
	tx := &fakeTx{
		w:      w,
		movies: map[int64]warehouse.DimMovie{},
		users:  map[int64]struct{}{},
		facts:  map[factKey]warehouse.FactRating{},
	}
	for k, v := range w.movies {
		tx.movies[k] = v
	}
	for k := range w.users {
		tx.users[k] = struct{}{}
	}
	for k, v := range w.facts {
		tx.facts[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	w.movies = tx.movies
	w.users = tx.users
	w.facts = tx.facts
	return nil
}

func (w *fakeWarehouse) EnsureIndexes(context.Context) error {
	w.indexCalls++
	w.ops = append(w.ops, "ensure_indexes")
	return nil
}

func (w *fakeWarehouse) RebuildDailyMetrics(context.Context) error {
	w.rebuildCalls++
	w.ops = append(w.ops, "rebuild_daily_metrics")
	return nil
}

func (w *fakeWarehouse) DailyMetrics(context.Context, string) ([]warehouse.DailyMetric, error) {
	return nil, nil
}

func (w *fakeWarehouse) TopMovies(context.Context, int) ([]warehouse.MovieStats, error) {
	return nil, nil
}

func (w *fakeWarehouse) TopGenres(context.Context, int) ([]warehouse.GenreStats, error) {
	return nil, nil
}

func (w *fakeWarehouse) FactCount(context.Context) (int64, error) {
	return int64(len(w.facts)), nil
}

func (w *fakeWarehouse) Close(context.Context) error { return nil }

type fakeTx struct {
	w      *fakeWarehouse
	movies map[int64]warehouse.DimMovie
	users  map[int64]struct{}
	facts  map[factKey]warehouse.FactRating
}

func (t *fakeTx) UpsertMovies(_ context.Context, movies []warehouse.DimMovie) error {
	t.w.ops = append(t.w.ops, "upsert_movies")
	for _, m := range movies {
		t.movies[m.MovieID] = m
	}
	return nil
}

func (t *fakeTx) InsertUsers(_ context.Context, userIDs []int64) error {
	t.w.ops = append(t.w.ops, "insert_users")
	for _, uid := range userIDs {
		t.users[uid] = struct{}{}
	}
	return nil
}

func (t *fakeTx) InsertFacts(_ context.Context, facts []warehouse.FactRating) error {
	t.w.ops = append(t.w.ops, "insert_facts")
	for _, f := range facts {
		k := factKey{f.UserID, f.MovieID, f.RatingTS}
		if _, exists := t.facts[k]; exists {
			continue
		}
		t.facts[k] = f
	}
	return nil
}
