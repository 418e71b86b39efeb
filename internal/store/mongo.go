package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FieldInsertOrder holds an ObjectID stamped on every inserted document.
// It breaks sort ties in insertion order, matching MemoryStore's sequence
// numbers. ObjectIDs grow monotonically within one process and by second
// across processes.
const FieldInsertOrder = "_ord"

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps an already connected database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Find(ctx context.Context, q Query, out any) error {
	if err := q.Validate(); err != nil {
		return err
	}

	filter := bson.D{}
	for _, f := range q.Filters {
		// {field: value} matches both scalar equality and array membership.
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}

	opts := options.Find()
	if sort := sortSpec(q); sort != nil {
		opts.SetSort(sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := s.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", q.Collection, err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", q.Collection, err)
	}
	return nil
}

// sortSpec orders by q's field, then by insertion order in the same
// direction.
func sortSpec(q Query) bson.D {
	if q.OrderBy == "" {
		return nil
	}
	dir := 1
	if q.Descending {
		dir = -1
	}
	return bson.D{{Key: q.OrderBy, Value: dir}, {Key: FieldInsertOrder, Value: dir}}
}

// insertDocument encodes doc and stamps its insertion order.
func insertDocument(doc any) (bson.M, error) {
	m, err := toM(doc)
	if err != nil {
		return nil, err
	}
	m[FieldInsertOrder] = primitive.NewObjectID()
	return m, nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{fieldID: id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore) Insert(ctx context.Context, collection, id string, doc any) error {
	m, err := insertDocument(doc)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(collection).InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, set map[string]any) error {
	return s.updateOne(ctx, collection, id, bson.M{"$set": set})
}

func (s *MongoStore) AddToSet(ctx context.Context, collection, id, field string, value any) error {
	return s.updateOne(ctx, collection, id, bson.M{"$addToSet": bson.M{field: value}})
}

func (s *MongoStore) Pull(ctx context.Context, collection, id, field string, value any) error {
	return s.updateOne(ctx, collection, id, bson.M{"$pull": bson.M{field: value}})
}

func (s *MongoStore) PullMatching(ctx context.Context, collection, id, field string, match map[string]any) error {
	return s.updateOne(ctx, collection, id, bson.M{"$pull": bson.M{field: bson.M(match)}})
}

func (s *MongoStore) UpdateElements(ctx context.Context, collection, id, field string, match, set map[string]any) error {
	update, filter := elementUpdate(field, match, set)
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: []any{filter}})
	return s.updateOne(ctx, collection, id, update, opts)
}

// elementUpdate builds a $set on field.$[el] and the array filter that
// selects el.
func elementUpdate(field string, match, set map[string]any) (bson.M, bson.M) {
	sets := bson.M{}
	for k, v := range set {
		sets[field+".$[el]."+k] = v
	}
	filter := bson.M{}
	for k, v := range match {
		filter["el."+k] = v
	}
	return bson.M{"$set": sets}, filter
}

func (s *MongoStore) updateOne(ctx context.Context, collection, id string, update bson.M, opts ...*options.UpdateOptions) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{fieldID: id}, update, opts...)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{fieldID: id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// Index describes one secondary index to create at startup.
type Index struct {
	Collection string
	Name       string
	Keys       bson.D
	Unique     bool
	Sparse     bool
}

// EnsureIndexes creates the given indexes. Existing indexes with the same
// definition are left alone.
func (s *MongoStore) EnsureIndexes(ctx context.Context, indexes []Index) error {
	for _, idx := range indexes {
		opts := options.Index().SetName(idx.Name)
		if idx.Unique {
			opts.SetUnique(true)
		}
		if idx.Sparse {
			opts.SetSparse(true)
		}
		model := mongo.IndexModel{Keys: idx.Keys, Options: opts}
		if _, err := s.db.Collection(idx.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index %s on %s: %w", idx.Name, idx.Collection, err)
		}
	}
	return nil
}
