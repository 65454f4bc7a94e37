package rawstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"cineflow/internal/errs"
)

// Mongo implements Store on a MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func ConnectMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: mongo connect: %v", errs.ErrStorageUnavailable, err)
	}
	// Connect is lazy; ping so an unreachable store fails here instead of
	// mid-stage.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: mongo ping: %v", errs.ErrStorageUnavailable, err)
	}
	return &Mongo{client: client, db: client.Database(dbName)}, nil
}

func (m *Mongo) ReplaceCollection(ctx context.Context, name string, records []Record) error {
	coll := m.db.Collection(name)
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("%w: drop %s: %v", errs.ErrStorageUnavailable, name, err)
	}
	if len(records) == 0 {
		return nil
	}
	docs := make([]any, len(records))
	for i, rec := range records {
		docs[i] = rec
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("%w: insert into %s: %v", errs.ErrStorageUnavailable, name, err)
	}
	return nil
}

func (m *Mongo) ReadCollection(ctx context.Context, name string) ([]Record, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 0})
	cur, err := m.db.Collection(name).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find in %s: %v", errs.ErrStorageUnavailable, name, err)
	}
	defer cur.Close(ctx)

	var out []Record
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode %s record: %v", errs.ErrStorageUnavailable, name, err)
		}
		out = append(out, Record(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor on %s: %v", errs.ErrStorageUnavailable, name, err)
	}
	return out, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
