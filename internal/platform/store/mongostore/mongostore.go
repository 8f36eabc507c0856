// Package mongostore implements the record store on MongoDB. Each record
// collection maps to a Mongo collection of the same name; record fields are
// stored flat beside _id, createdAt and updatedAt.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ehr/records/internal/platform/store"
)

// Store is a store.Store backed by one Mongo database.
type Store struct {
	db *mongo.Database
}

// Connect dials uri, verifies the connection and selects database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client.Database(database)), nil
}

// New wraps an already-selected database.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Collection(name string) store.Collection {
	return &collection{coll: s.db.Collection(name), name: name}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
	name string
}

func (c *collection) Insert(ctx context.Context, fields map[string]any) (*store.Record, error) {
	now := store.Now()
	r := &store.Record{ID: store.NewID(), Fields: copyFields(fields), CreatedAt: now, UpdatedAt: now}
	if _, err := c.coll.InsertOne(ctx, toDocument(r)); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", c.name, err)
	}
	return r, nil
}

func (c *collection) FindByID(ctx context.Context, id string) (*store.Record, error) {
	var doc bson.M
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", c.name, id, err)
	}
	return toRecord(doc), nil
}

func (c *collection) Find(ctx context.Context, f store.Filter) ([]*store.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := c.coll.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}
	defer cur.Close(ctx)

	items := make([]*store.Record, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
		items = append(items, toRecord(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.name, err)
	}
	return items, nil
}

func (c *collection) UpdateByID(ctx context.Context, id string, partial map[string]any) (*store.Record, error) {
	set := bson.M{}
	for k, v := range partial {
		set[k] = v
	}
	set["updatedAt"] = store.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bson.M
	err := c.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", c.name, id, err)
	}
	return toRecord(doc), nil
}

func (c *collection) DeleteByID(ctx context.Context, id string) error {
	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *collection) Count(ctx context.Context, f store.Filter) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, buildFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

// SumBy runs a $group pipeline. $sum ignores non-numeric values.
func (c *collection) SumBy(ctx context.Context, groupField, sumField string) ([]store.GroupTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + groupField},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$" + sumField}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sum %s by %s: %w", sumField, groupField, err)
	}
	defer cur.Close(ctx)

	out := make([]store.GroupTotal, 0)
	for cur.Next(ctx) {
		var row bson.M
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode group total: %w", err)
		}
		total, _ := toFloat(row["total"])
		out = append(out, store.GroupTotal{Key: fromBSON(row["_id"]), Total: total})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate group totals: %w", err)
	}
	return out, nil
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
