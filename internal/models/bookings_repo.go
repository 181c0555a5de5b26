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

func (mdb *MongodbRepo) CreateBooking(ctx context.Context, booking *Booking) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	if _, err := col.InsertOne(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to insert booking: %w", err)
	}
	return booking, nil
}

func (mdb *MongodbRepo) GetBookingByID(ctx context.Context, id string) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var booking Booking
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding booking: %w", err)
	}
	return &booking, nil
}

func (mdb *MongodbRepo) UpdateBooking(ctx context.Context, id string, fields map[string]interface{}) (*Booking, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Booking
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error updating booking: %w", err)
	}
	return &updated, nil
}

func (mdb *MongodbRepo) ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int64, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	switch {
	case filter.UserID != "" && filter.Email != "":
		query["$or"] = bson.A{
			bson.M{"user_id": filter.UserID},
			bson.M{"email": filter.Email},
		}
	case filter.UserID != "":
		query["user_id"] = filter.UserID
	case filter.Email != "":
		query["email"] = filter.Email
	}

	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting bookings: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "pickup_time", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit)).SetSkip(int64(filter.Offset))
	}

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, 0, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, total, nil
}

func (mdb *MongodbRepo) FindActiveInWindow(ctx context.Context, from, to time.Time) ([]*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	query := bson.M{
		"status":      bson.M{"$ne": StatusCancelled},
		"pickup_time": bson.M{"$gt": from, "$lt": to},
	}
	cursor, err := col.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings in window: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

func (mdb *MongodbRepo) DeleteBooking(ctx context.Context, id string) error {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting booking: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// BookingStats aggregates booking counts per status and completed revenue.
func (mdb *MongodbRepo) BookingStats(ctx context.Context, now time.Time) (*BookingStats, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	stats := &BookingStats{ByStatus: map[string]int64{}}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":     "$status",
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$fare"},
		}}},
	}
	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status  string  `bson:"_id"`
		Count   int64   `bson:"count"`
		Revenue float64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("error decoding booking stats: %w", err)
	}
	for _, g := range groups {
		stats.ByStatus[g.Status] = g.Count
		stats.TotalBookings += g.Count
		if g.Status == string(StatusCompleted) {
			stats.CompletedRevenue = g.Revenue
		}
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	upcoming, err := col.CountDocuments(ctx, bson.M{
		"status":      bson.M{"$in": bson.A{StatusPending, StatusConfirmed}},
		"pickup_time": bson.M{"$gte": now, "$lt": startOfDay.AddDate(0, 0, 1)},
	})
	if err != nil {
		return nil, fmt.Errorf("error counting today's bookings: %w", err)
	}
	stats.UpcomingToday = upcoming

	return stats, nil
}
