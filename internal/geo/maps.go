package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

const metersPerMile = 1609.344

var ErrNoRoute = errors.New("no driving route between the addresses")

// Route is a driving route between two addresses.
type Route struct {
	Miles        float64
	Minutes      float64
	DistanceText string
	DurationText string
}

type Prediction struct {
	Description string `json:"description"`
	PlaceID     string `json:"place_id"`
}

// MapsClient wraps the Google Maps Distance Matrix and Places APIs.
type MapsClient struct {
	client  *maps.Client
	country string
}

// NewMapsClient builds the client. country, when set, restricts
// autocomplete to one ISO 3166-1 country code.
func NewMapsClient(apiKey, country string) (*MapsClient, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsClient{client: client, country: country}, nil
}

func (m *MapsClient) Route(ctx context.Context, origin, destination string) (*Route, error) {
	resp, err := m.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin},
		Destinations: []string{destination},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsImperial,
	})
	if err != nil {
		return nil, fmt.Errorf("distance matrix request failed: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return nil, ErrNoRoute
	}

	el := resp.Rows[0].Elements[0]
	if !strings.EqualFold(el.Status, "OK") {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, el.Status)
	}

	return &Route{
		Miles:        float64(el.Distance.Meters) / metersPerMile,
		Minutes:      el.Duration.Minutes(),
		DistanceText: el.Distance.HumanReadable,
		DurationText: formatDuration(el.Duration.Minutes()),
	}, nil
}

func (m *MapsClient) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	req := &maps.PlaceAutocompleteRequest{Input: input}
	if m.country != "" {
		req.Components = map[maps.Component][]string{maps.ComponentCountry: {m.country}}
	}
	resp, err := m.client.PlaceAutocomplete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("place autocomplete request failed: %w", err)
	}

	predictions := make([]Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		predictions = append(predictions, Prediction{Description: p.Description, PlaceID: p.PlaceID})
	}
	return predictions, nil
}

func formatDuration(minutes float64) string {
	total := int(minutes + 0.5)
	if total < 60 {
		return fmt.Sprintf("%d mins", total)
	}
	h, m := total/60, total%60
	if m == 0 {
		return fmt.Sprintf("%d hr", h)
	}
	return fmt.Sprintf("%d hr %d mins", h, m)
}
