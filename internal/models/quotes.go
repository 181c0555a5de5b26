package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrQuoteNotFound = errors.New("fare quote not found")

// FareQuote is the fare calculated for one booking form session. It is what
// a later submission is priced from.
type FareQuote struct {
	SessionID   string    `bson:"_id" json:"-"`
	Origin      string    `bson:"origin" json:"origin"`
	Destination string    `bson:"destination" json:"destination"`
	Fare        float64   `bson:"fare" json:"fare"`
	Distance    string    `bson:"distance,omitempty" json:"distance,omitempty"`
	Duration    string    `bson:"duration,omitempty" json:"duration,omitempty"`
	Zone        string    `bson:"zone,omitempty" json:"zone,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time `bson:"expires_at" json:"expires_at"` // TTL index field
}

type QuoteRepo interface {
	SaveQuote(ctx context.Context, quote *FareQuote) error
	GetQuote(ctx context.Context, sessionID string) (*FareQuote, error)
	DeleteQuote(ctx context.Context, sessionID string) error
}

func (mdb *MongodbRepo) SaveQuote(ctx context.Context, quote *FareQuote) error {
	col, err := mdb.GetCollection(ctx, QuotesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	_, err = col.ReplaceOne(ctx, bson.M{"_id": quote.SessionID}, quote, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving fare quote: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetQuote(ctx context.Context, sessionID string) (*FareQuote, error) {
	col, err := mdb.GetCollection(ctx, QuotesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	// the TTL monitor runs once a minute, so filter expired quotes here too
	var quote FareQuote
	err = col.FindOne(ctx, bson.M{
		"_id":        sessionID,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&quote)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding fare quote: %w", err)
	}
	return &quote, nil
}

func (mdb *MongodbRepo) DeleteQuote(ctx context.Context, sessionID string) error {
	col, err := mdb.GetCollection(ctx, QuotesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return fmt.Errorf("error deleting fare quote: %w", err)
	}
	return nil
}
