package statestore

import (
	"context"
	"errors"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type mongoDocument struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
	ETag  int64  `bson:"etag"`
}

// MongoStore keeps one document per key in the "state" collection. Etags come
// from a counter document so they are never reused after a delete.
type MongoStore struct {
	name       string
	client     *mongo.Client
	collection *mongo.Collection
	counters   *mongo.Collection
	tracer     trace.Tracer
}

func NewMongoStore(client *mongo.Client, database, name string) *MongoStore {
	db := client.Database(database)

	return &MongoStore{
		name:       name,
		client:     client,
		collection: db.Collection("state"),
		counters:   db.Collection("state_counters"),
		tracer:     otel.Tracer("statestore/mongo"),
	}
}

func (s *MongoStore) Name() string { return s.name }

func (s *MongoStore) nextETag(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}

	err := s.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": s.name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)

	return counter.Seq, err
}

func (s *MongoStore) Get(ctx context.Context, key string) (Item, bool, error) {
	ctx, span := s.tracer.Start(ctx, "MongoStore.Get")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	var doc mongoDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": namespaced(s.name, key)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Item{}, false, nil
		}

		span.RecordError(err)
		return Item{}, false, transportErr("get", key, err)
	}

	return Item{Key: key, Value: doc.Value, ETag: strconv.FormatInt(doc.ETag, 10)}, true, nil
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := s.tracer.Start(ctx, "MongoStore.Set")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	etag, err := s.nextETag(ctx)
	if err != nil {
		span.RecordError(err)
		return transportErr("set", key, err)
	}

	_, err = s.collection.UpdateOne(
		ctx,
		bson.M{"_id": namespaced(s.name, key)},
		bson.M{"$set": bson.M{"value": value, "etag": etag}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		span.RecordError(err)
		return transportErr("set", key, err)
	}

	return nil
}

func (s *MongoStore) SetIfMatch(ctx context.Context, key string, value []byte, etag string) error {
	ctx, span := s.tracer.Start(ctx, "MongoStore.SetIfMatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("state.key", key),
		attribute.String("state.etag", etag),
	)

	next, err := s.nextETag(ctx)
	if err != nil {
		span.RecordError(err)
		return transportErr("set", key, err)
	}

	id := namespaced(s.name, key)

	if etag == "" {
		_, err := s.collection.InsertOne(ctx, mongoDocument{Key: id, Value: value, ETag: next})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrETagMismatch
			}

			span.RecordError(err)
			return transportErr("set", key, err)
		}

		return nil
	}

	expected, err := strconv.ParseInt(etag, 10, 64)
	if err != nil {
		return ErrETagMismatch
	}

	res, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "etag": expected},
		bson.M{"$set": bson.M{"value": value, "etag": next}},
	)
	if err != nil {
		span.RecordError(err)
		return transportErr("set", key, err)
	}

	if res.MatchedCount == 0 {
		return ErrETagMismatch
	}

	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "MongoStore.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": namespaced(s.name, key)}); err != nil {
		span.RecordError(err)
		return transportErr("delete", key, err)
	}

	return nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
