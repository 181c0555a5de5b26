package services

import (
	"context"
	"math"
	"strings"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/geo"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
)

const minAutocompleteInput = 3

// RouteFinder is the geocoding provider behind fare estimates and address
// suggestions.
type RouteFinder interface {
	Route(ctx context.Context, origin, destination string) (*geo.Route, error)
	Autocomplete(ctx context.Context, input string) ([]geo.Prediction, error)
}

type FareEstimate struct {
	Fare     float64 `json:"fare"`
	Distance string  `json:"distance,omitempty"`
	Duration string  `json:"duration,omitempty"`
	Zone     string  `json:"zone,omitempty"`
}

type FareService struct {
	routes   RouteFinder
	settings *SettingsService
}

func NewFareService(routes RouteFinder, settings *SettingsService) *FareService {
	return &FareService{routes: routes, settings: settings}
}

func (f *FareService) EstimateFare(ctx context.Context, origin, destination string) (*FareEstimate, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)

	var missing []string
	if origin == "" {
		missing = append(missing, "origin")
	}
	if destination == "" {
		missing = append(missing, "destination")
	}
	if len(missing) > 0 {
		return nil, domain.ValidationError{Fields: missing}
	}

	settings, err := f.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	route, err := f.routes.Route(ctx, origin, destination)
	if err != nil {
		return nil, domain.UpstreamError{Msg: MsgFareFailed, Err: err}
	}

	zone := settings.ZoneFor(origin, destination)
	est := &FareEstimate{
		Fare:     ComputeFare(settings, zone, route.Miles, route.Minutes),
		Distance: route.DistanceText,
		Duration: route.DurationText,
	}
	if zone != nil {
		est.Zone = zone.Name
	}
	return est, nil
}

// ComputeFare prices a trip: base + per-mile + per-minute, with the zone's
// rates when a zone applies, never below the minimum fare. Rounded to cents.
func ComputeFare(s *models.Settings, zone *models.PricingZone, miles, minutes float64) float64 {
	base, perMile, perMinute := s.BaseFare, s.PerMileRate, s.PerMinuteRate
	if zone != nil {
		base, perMile, perMinute = zone.BaseFare, zone.PerMileRate, zone.PerMinuteRate
	}
	fare := base + perMile*math.Max(miles, 0) + perMinute*math.Max(minutes, 0)
	return helpers.Round2(math.Max(fare, s.MinimumFare))
}

// Suggest returns address predictions for the booking form.
func (f *FareService) Suggest(ctx context.Context, input string) ([]geo.Prediction, error) {
	input = strings.TrimSpace(input)
	if len([]rune(input)) < minAutocompleteInput {
		return []geo.Prediction{}, nil
	}
	predictions, err := f.routes.Autocomplete(ctx, input)
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Address suggestions are unavailable right now.", Err: err}
	}
	return predictions, nil
}
