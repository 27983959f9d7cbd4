package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps paths onto collections: the first segment names the
// collection, the second the document _id and any remaining segments a
// dotted field inside the document.
type MongoStore struct {
	instance *database.MongoInstance
}

func NewMongoStore(instance *database.MongoInstance) *MongoStore {
	return &MongoStore{instance: instance}
}

type mongoPath struct {
	collection string
	id         string
	field      string
	segments   []string
}

func parseMongoPath(path string) (mongoPath, error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return mongoPath{}, fmt.Errorf("%w: root path", ErrUnsupported)
	}

	p := mongoPath{collection: segments[0], segments: segments}
	if len(segments) > 1 {
		p.id = segments[1]
	}
	if len(segments) > 2 {
		p.field = strings.Join(segments[2:], ".")
	}

	return p, nil
}

func (s *MongoStore) Get(ctx context.Context, path string) (Snapshot, error) {
	p, err := parseMongoPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	value, err := s.read(ctx, p)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Path: path, Value: marshalValue(value)}, nil
}

func (s *MongoStore) read(ctx context.Context, p mongoPath) (interface{}, error) {
	collection := s.instance.GetCollection(p.collection)

	if p.id == "" {
		cursor, err := collection.Find(ctx, bson.M{})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		documents := map[string]interface{}{}
		for cursor.Next(ctx) {
			id, document, err := documentValue(cursor.Current)
			if err != nil {
				return nil, err
			}
			documents[id] = document
		}
		if err := cursor.Err(); err != nil {
			return nil, err
		}

		if len(documents) == 0 {
			return nil, nil
		}
		return documents, nil
	}

	raw, err := collection.FindOne(ctx, bson.M{"_id": p.id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	_, document, err := documentValue(raw)
	if err != nil {
		return nil, err
	}

	return lookup(document, p.segments[2:]), nil
}

// documentValue converts a BSON document to its JSON form without the _id
func documentValue(raw bson.Raw) (string, map[string]interface{}, error) {
	extended, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return "", nil, err
	}

	var document map[string]interface{}
	if err := json.Unmarshal(extended, &document); err != nil {
		return "", nil, err
	}

	id := fmt.Sprint(document["_id"])
	delete(document, "_id")

	return id, document, nil
}

func (s *MongoStore) Set(ctx context.Context, path string, value interface{}) error {
	p, err := parseMongoPath(path)
	if err != nil {
		return err
	}

	normalized, err := normalize(value)
	if err != nil {
		return err
	}

	collection := s.instance.GetCollection(p.collection)

	switch {
	case p.id == "":
		return s.replaceCollection(ctx, collection, normalized)
	case p.field == "":
		if normalized == nil {
			_, err := collection.DeleteOne(ctx, bson.M{"_id": p.id})
			return err
		}

		document, ok := normalized.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: document %s must be an object", ErrUnsupported, path)
		}
		document["_id"] = p.id

		_, err := collection.ReplaceOne(ctx, bson.M{"_id": p.id}, document, options.Replace().SetUpsert(true))
		return err
	default:
		if normalized == nil {
			_, err := collection.UpdateOne(ctx, bson.M{"_id": p.id}, bson.M{"$unset": bson.M{p.field: ""}})
			return err
		}

		_, err := collection.UpdateOne(ctx, bson.M{"_id": p.id}, bson.M{"$set": bson.M{p.field: normalized}}, options.Update().SetUpsert(true))
		return err
	}
}

// replaceCollection upserts every document, then removes the ones no longer
// present. A failed upsert leaves the previous documents in place.
func (s *MongoStore) replaceCollection(ctx context.Context, collection *mongo.Collection, value interface{}) error {
	operations, ids, err := collectionWrites(collection.Name(), value)
	if err != nil {
		return err
	}

	if len(operations) > 0 {
		if _, err := collection.BulkWrite(ctx, operations, options.BulkWrite().SetOrdered(false)); err != nil {
			return err
		}
	}

	_, err = collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}})
	return err
}

// collectionWrites turns a map of id to document into upserts. Every entry
// is checked before any write is built.
func collectionWrites(name string, value interface{}) ([]mongo.WriteModel, []string, error) {
	ids := []string{}
	if value == nil {
		return nil, ids, nil
	}

	documents, ok := value.(map[string]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("%w: collection %s must be an object", ErrUnsupported, name)
	}

	for id := range documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	operations := make([]mongo.WriteModel, 0, len(ids))
	for _, id := range ids {
		document, ok := documents[id].(map[string]interface{})
		if !ok {
			return nil, nil, fmt.Errorf("%w: document %s must be an object", ErrUnsupported, id)
		}
		document["_id"] = id

		operations = append(operations, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(document).
			SetUpsert(true))
	}

	return operations, ids, nil
}

// Subscribe watches the collection change stream and re-reads the path on
// every event that touches it
func (s *MongoStore) Subscribe(ctx context.Context, path string, onChange func(Snapshot)) (func(), error) {
	if onChange == nil {
		return nil, errors.New("subscribe requires a callback")
	}

	p, err := parseMongoPath(path)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	var mu sync.Mutex
	last := current.Value
	onChange(current)

	deliver := func() {
		snapshot, err := s.Get(ctx, path)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("path", path).Msg("Error reading changed document")
			}
			return
		}

		mu.Lock()
		defer mu.Unlock()

		if ctx.Err() != nil || bytes.Equal(last, snapshot.Value) {
			return
		}
		last = snapshot.Value
		onChange(snapshot)
	}

	go s.watch(ctx, p, deliver)

	return func() { cancel() }, nil
}

func (s *MongoStore) watch(ctx context.Context, p mongoPath, onEvent func()) {
	var pipeline mongo.Pipeline
	if p.id != "" {
		pipeline = mongo.Pipeline{
			bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: p.id}}}},
		}
	}

	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 0
	retry.MaxInterval = time.Minute

	for ctx.Err() == nil {
		stream, err := s.instance.GetCollection(p.collection).Watch(ctx, pipeline)
		if err != nil {
			delay := retry.NextBackOff()
			log.Error().Err(err).Str("collection", p.collection).Str("retry", delay.String()).Msg("Failed to open change stream")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		retry.Reset()
		for stream.Next(ctx) {
			onEvent()
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("collection", p.collection).Msg("Change stream closed")
		}
		stream.Close(context.Background())
	}
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.instance.Disconnect(ctx)
}
