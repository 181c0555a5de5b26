package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type IndexRepo interface {
	EnsureIndexes(ctx context.Context) error
}

func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		QuotesColName: {
			// quotes expire at the time stored in expires_at
			{
				Keys: bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().
					SetExpireAfterSeconds(0).
					SetName("expires_at_ttl"),
			},
		},
		FeedbackColName: {
			{
				Keys: bson.D{{Key: "booking_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("booking_id_unique"),
			},
		},
		BookingsColName: {
			{
				Keys:    bson.D{{Key: "pickup_time", Value: 1}},
				Options: options.Index().SetName("pickup_time_idx"),
			},
			{
				Keys: bson.D{
					{Key: "status", Value: 1},
					{Key: "pickup_time", Value: -1},
				},
				Options: options.Index().SetName("status_pickup_time_idx"),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_idx"),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("user_id_idx").SetSparse(true),
			},
		},
		DriversColName: {
			{
				Keys:    bson.D{{Key: "status", Value: 1}},
				Options: options.Index().SetName("status_idx"),
			},
		},
	}
}

// EnsureIndexes creates the indexes every collection relies on, including
// the TTL on fare quotes and the one-feedback-per-booking constraint.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	for colName, indexes := range collectionIndexes() {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return fmt.Errorf("error getting collection: %w", err)
		}
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("error creating indexes on %s: %w", colName, err)
		}
	}
	return nil
}
