package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateFeedback = errors.New("feedback already submitted for this booking")

type Feedback struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BookingID string             `bson:"booking_id" json:"booking_id" validate:"required"`
	DriverID  string             `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	Rating    int                `bson:"rating" json:"rating" validate:"required,min=1,max=5"`
	Comment   string             `bson:"comment" json:"comment" validate:"max=2000"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func (f *Feedback) BeforeCreate() {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
}

func (f *Feedback) Sanitize() {
	f.Comment = strings.TrimSpace(f.Comment)
}

type FeedbackRepo interface {
	CreateFeedback(ctx context.Context, feedback *Feedback) (*Feedback, error)
	ListFeedback(ctx context.Context, limit int) ([]*Feedback, error)
}

func (mdb *MongodbRepo) CreateFeedback(ctx context.Context, feedback *Feedback) (*Feedback, error) {
	feedback.BeforeCreate()

	col, err := mdb.GetCollection(ctx, FeedbackColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	// booking_id carries a unique index
	if _, err := col.InsertOne(ctx, feedback); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateFeedback
		}
		return nil, fmt.Errorf("failed to insert feedback: %w", err)
	}
	return feedback, nil
}

func (mdb *MongodbRepo) ListFeedback(ctx context.Context, limit int) ([]*Feedback, error) {
	col, err := mdb.GetCollection(ctx, FeedbackColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding feedback: %w", err)
	}
	defer cursor.Close(ctx)

	items := []*Feedback{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("error decoding feedback: %w", err)
	}
	return items, nil
}
