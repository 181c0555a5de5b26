package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SettingsDocID = "pricing"

var ErrSettingsNotFound = errors.New("settings not found")

// RefundPolicy holds the refund percentage of the paid deposit for each
// notice bucket before pickup.
type RefundPolicy struct {
	Over48Hours   float64 `bson:"over_48_hours" json:"over_48_hours" validate:"gte=0,lte=100"`
	Within48Hours float64 `bson:"within_48_hours" json:"within_48_hours" validate:"gte=0,lte=100"`
	Within24Hours float64 `bson:"within_24_hours" json:"within_24_hours" validate:"gte=0,lte=100"`
}

type PricingZone struct {
	Name          string   `bson:"name" json:"name" validate:"required"`
	Keywords      []string `bson:"keywords" json:"keywords" validate:"min=1,dive,required"`
	BaseFare      float64  `bson:"base_fare" json:"base_fare" validate:"gte=0"`
	PerMileRate   float64  `bson:"per_mile_rate" json:"per_mile_rate" validate:"gte=0"`
	PerMinuteRate float64  `bson:"per_minute_rate" json:"per_minute_rate" validate:"gte=0"`
}

type Settings struct {
	ID             string        `bson:"_id" json:"-"`
	BaseFare       float64       `bson:"base_fare" json:"base_fare" validate:"gte=0"`
	PerMileRate    float64       `bson:"per_mile_rate" json:"per_mile_rate" validate:"gte=0"`
	PerMinuteRate  float64       `bson:"per_minute_rate" json:"per_minute_rate" validate:"gte=0"`
	MinimumFare    float64       `bson:"minimum_fare" json:"minimum_fare" validate:"gte=0"`
	DepositPercent float64       `bson:"deposit_percent" json:"deposit_percent" validate:"gte=0,lte=100"`
	BufferMinutes  int           `bson:"buffer_minutes" json:"buffer_minutes" validate:"gte=0"`
	Refunds        RefundPolicy  `bson:"refunds" json:"refunds"`
	Zones          []PricingZone `bson:"zones" json:"zones" validate:"dive"`
	Currency       string        `bson:"currency" json:"currency" validate:"omitempty,len=3"`
	UpdatedAt      time.Time     `bson:"updated_at" json:"updated_at"`
}

func DefaultSettings() *Settings {
	return &Settings{
		ID:             SettingsDocID,
		BaseFare:       45,
		PerMileRate:    3.25,
		PerMinuteRate:  0.55,
		MinimumFare:    65,
		DepositPercent: 50,
		BufferMinutes:  60,
		Refunds: RefundPolicy{
			Over48Hours:   100,
			Within48Hours: 50,
			Within24Hours: 0,
		},
		Zones:    []PricingZone{},
		Currency: "usd",
	}
}

// RefundPercent returns the refund percentage for a cancellation made
// `notice` before pickup.
func (s *Settings) RefundPercent(notice time.Duration) float64 {
	switch {
	case notice > 48*time.Hour:
		return s.Refunds.Over48Hours
	case notice >= 24*time.Hour:
		return s.Refunds.Within48Hours
	default:
		return s.Refunds.Within24Hours
	}
}

// ZoneFor returns the first zone with a keyword in either address.
func (s *Settings) ZoneFor(origin, destination string) *PricingZone {
	o := strings.ToLower(origin)
	d := strings.ToLower(destination)
	for i := range s.Zones {
		for _, kw := range s.Zones[i].Keywords {
			k := strings.ToLower(strings.TrimSpace(kw))
			if k == "" {
				continue
			}
			if strings.Contains(o, k) || strings.Contains(d, k) {
				return &s.Zones[i]
			}
		}
	}
	return nil
}

type SettingsRepo interface {
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, settings *Settings) error
}

func (mdb *MongodbRepo) GetSettings(ctx context.Context) (*Settings, error) {
	col, err := mdb.GetCollection(ctx, SettingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var settings Settings
	err = col.FindOne(ctx, bson.M{"_id": SettingsDocID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding settings: %w", err)
	}
	return &settings, nil
}

func (mdb *MongodbRepo) SaveSettings(ctx context.Context, settings *Settings) error {
	col, err := mdb.GetCollection(ctx, SettingsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	settings.ID = SettingsDocID
	_, err = col.ReplaceOne(ctx, bson.M{"_id": SettingsDocID}, settings, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}
	return nil
}
