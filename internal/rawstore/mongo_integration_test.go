package rawstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineflow/internal/rawstore"
)

// Needs a live MongoDB:
//
//	CINEFLOW_TEST_MONGO_URI=mongodb://localhost:27017 go test ./...

func mongoHarness(t *testing.T) (context.Context, *rawstore.Mongo) {
	t.Helper()
	uri := os.Getenv("CINEFLOW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CINEFLOW_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	store, err := rawstore.ConnectMongo(ctx, uri, "cineflow_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	return ctx, store
}

func TestMongoReplaceCollectionIsReplaceAll(t *testing.T) {
	ctx, store := mongoHarness(t)

	first := []rawstore.Record{
		{"userId": int64(1), "movieId": int64(10), "rating": 4.0, "timestamp": int64(1000)},
		{"userId": int64(2), "movieId": int64(10), "rating": 3.5, "timestamp": int64(1001)},
		{"userId": int64(3), "movieId": int64(11), "rating": 5.0, "timestamp": int64(1002)},
	}
	require.NoError(t, store.ReplaceCollection(ctx, rawstore.RatingsCollection, first))

	second := []rawstore.Record{
		{"userId": int64(9), "movieId": int64(12), "rating": 1.0, "timestamp": int64(2000)},
	}
	require.NoError(t, store.ReplaceCollection(ctx, rawstore.RatingsCollection, second))

	got, err := store.ReadCollection(ctx, rawstore.RatingsCollection)
	require.NoError(t, err)
	require.Len(t, got, 1, "replace must drop earlier records")

	// The identity field stays internal and values keep their types.
	assert.NotContains(t, got[0], "_id")
	assert.Equal(t, int64(9), got[0]["userId"])
	assert.Equal(t, 1.0, got[0]["rating"])
}

func TestMongoReplaceWithEmptySet(t *testing.T) {
	ctx, store := mongoHarness(t)

	seed := []rawstore.Record{{"movieId": int64(1), "title": "Heat", "genres": "Action"}}
	require.NoError(t, store.ReplaceCollection(ctx, rawstore.MoviesCollection, seed))
	require.NoError(t, store.ReplaceCollection(ctx, rawstore.MoviesCollection, nil))

	got, err := store.ReadCollection(ctx, rawstore.MoviesCollection)
	require.NoError(t, err)
	assert.Empty(t, got)
}
