package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createTripsIndexes()
}

func createTripsIndexes() {
	tripsCollection := GetCollection("trips")
	tripsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userid", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "userid", Value: 1},
				{Key: "departuretime", Value: 1},
			},
		},
	}

	opts := options.CreateIndexes()
	_, err := tripsCollection.Indexes().CreateMany(context.Background(), tripsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
