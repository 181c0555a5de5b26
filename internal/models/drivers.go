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

type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverBusy      DriverStatus = "busy"
	DriverOffline   DriverStatus = "offline"
)

var ErrDriverNotFound = errors.New("driver not found")

func (s DriverStatus) Valid() bool {
	return s == DriverAvailable || s == DriverBusy || s == DriverOffline
}

type Vehicle struct {
	Make  string `bson:"make" json:"make" validate:"required"`
	Model string `bson:"model" json:"model" validate:"required"`
	Year  int    `bson:"year" json:"year" validate:"gte=1990,lte=2100"`
	Color string `bson:"color" json:"color"`
	Plate string `bson:"plate" json:"plate" validate:"required"`
}

type Driver struct {
	ID          string       `bson:"_id" json:"id"`
	Name        string       `bson:"name" json:"name" validate:"required,max=120"`
	Email       string       `bson:"email" json:"email" validate:"omitempty,email"`
	Phone       string       `bson:"phone" json:"phone" validate:"required,min=7,max=32"`
	Vehicle     Vehicle      `bson:"vehicle" json:"vehicle"`
	Status      DriverStatus `bson:"status" json:"status"`
	Rating      float64      `bson:"rating" json:"rating"`
	RatingCount int          `bson:"rating_count" json:"rating_count"`
	TotalRides  int          `bson:"total_rides" json:"total_rides"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`
}

type DriverRepo interface {
	CreateDriver(ctx context.Context, driver *Driver) (*Driver, error)
	GetDriverByID(ctx context.Context, id string) (*Driver, error)
	ListDrivers(ctx context.Context, status DriverStatus) ([]*Driver, error)
	UpdateDriver(ctx context.Context, id string, fields map[string]interface{}) (*Driver, error)
	DeleteDriver(ctx context.Context, id string) error
	IncrementRides(ctx context.Context, id string) error
	AddRating(ctx context.Context, id string, rating int) error
	DriverStatusCounts(ctx context.Context) (map[string]int64, error)
}

func (mdb *MongodbRepo) CreateDriver(ctx context.Context, driver *Driver) (*Driver, error) {
	col, err := mdb.GetCollection(ctx, DriversColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, driver); err != nil {
		return nil, fmt.Errorf("failed to insert driver: %w", err)
	}
	return driver, nil
}

func (mdb *MongodbRepo) GetDriverByID(ctx context.Context, id string) (*Driver, error) {
	col, err := mdb.GetCollection(ctx, DriversColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var driver Driver
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&driver)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding driver: %w", err)
	}
	return &driver, nil
}

func (mdb *MongodbRepo) ListDrivers(ctx context.Context, status DriverStatus) ([]*Driver, error) {
	col, err := mdb.GetCollection(ctx, DriversColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	cursor, err := col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error finding drivers: %w", err)
	}
	defer cursor.Close(ctx)

	drivers := []*Driver{}
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, fmt.Errorf("error decoding drivers: %w", err)
	}
	return drivers, nil
}

func (mdb *MongodbRepo) UpdateDriver(ctx context.Context, id string, fields map[string]interface{}) (*Driver, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	col, err := mdb.GetCollection(ctx, DriversColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	var updated Driver
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error updating driver: %w", err)
	}
	return &updated, nil
}

func (mdb *MongodbRepo) DeleteDriver(ctx context.Context, id string) error {
	col, err := mdb.GetCollection(ctx, DriversColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting driver: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrDriverNotFound
	}
	return nil
}

func (mdb *MongodbRepo) IncrementRides(ctx context.Context, id string) error {
	col, err := mdb.GetCollection(ctx, DriversColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"total_rides": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("error incrementing rides: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrDriverNotFound
	}
	return nil
}

// AddRating folds a new rating into the running average in one update so
// concurrent ratings never read a stale count.
func (mdb *MongodbRepo) AddRating(ctx context.Context, id string, rating int) error {
	col, err := mdb.GetCollection(ctx, DriversColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"rating": bson.M{"$divide": bson.A{
				bson.M{"$add": bson.A{
					bson.M{"$multiply": bson.A{"$rating", "$rating_count"}},
					rating,
				}},
				bson.M{"$add": bson.A{"$rating_count", 1}},
			}},
			"rating_count": bson.M{"$add": bson.A{"$rating_count", 1}},
			"updated_at":   time.Now().UTC(),
		}}},
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("error updating driver rating: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrDriverNotFound
	}
	return nil
}

func (mdb *MongodbRepo) DriverStatusCounts(ctx context.Context) (map[string]int64, error) {
	col, err := mdb.GetCollection(ctx, DriversColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("error decoding driver counts: %w", err)
	}

	counts := map[string]int64{}
	for _, g := range groups {
		counts[g.Status] = g.Count
	}
	return counts, nil
}
