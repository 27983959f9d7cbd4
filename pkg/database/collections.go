package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (m *MongoInstance) createIndexes(ctx context.Context) {
	m.createIndex(ctx, "stops", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "name", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "location.latitude", Value: 1},
				{Key: "location.longitude", Value: 1},
			},
		},
	})

	m.createIndex(ctx, "routes", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "type", Value: 1}},
		},
	})

	m.createIndex(ctx, "vehicleLocations", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
		},
	})
}

func (m *MongoInstance) createIndex(ctx context.Context, collection string, indexes []mongo.IndexModel) {
	_, err := m.GetCollection(collection).Indexes().CreateMany(ctx, indexes, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("Creating Index")
	}
}
