package geocode

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"parcel-dispatch/internal/logx"
)

// Gateway resolves coordinates to street addresses through the Google Maps
// API. Callers treat it as optional enrichment and must keep working when it
// fails.
type Gateway struct {
	client *maps.Client
	logger logx.Logger
}

// NewGateway creates a geocode gateway with the given API key.
func NewGateway(apiKey string, logger logx.Logger) (*Gateway, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &Gateway{client: client, logger: logger}, nil
}

// ResolveAddress returns the formatted address closest to the point, or an
// empty string when the API has nothing for it.
func (g *Gateway) ResolveAddress(ctx context.Context, lat, lng float64) (string, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}

	addr := results[0].FormattedAddress
	g.logger.Debug("address resolved",
		logx.Float64("lat", lat),
		logx.Float64("lng", lng),
		logx.String("address", addr),
	)
	return addr, nil
}
