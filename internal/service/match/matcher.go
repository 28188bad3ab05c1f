package match

import (
	"context"
	"sort"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
)

// Candidate is a ranked driver returned by the matcher.
type Candidate struct {
	Driver     domain.Driver
	DistanceKm float64
}

// Matcher finds and ranks assignable drivers around a pickup point.
type Matcher struct {
	drivers  driverSource
	presence presenceIndex
	logger   logx.Logger
}

// NewMatcher creates a Matcher. presence may be nil.
func NewMatcher(drivers driverSource, presence presenceIndex, logger logx.Logger) *Matcher {
	return &Matcher{drivers: drivers, presence: presence, logger: logger}
}

// Rank returns drivers within radiusKm of the pickup ordered by ascending
// distance, higher rating first on ties. An empty result is a normal
// outcome, not an error.
func (m *Matcher) Rank(ctx context.Context, pickup domain.Location, radiusKm float64, vehicle *domain.VehicleType) ([]Candidate, error) {
	if !ValidCoordinates(pickup.Lat, pickup.Lng) || radiusKm <= 0 {
		return nil, apperr.ErrValidation
	}

	drivers, err := m.drivers.ListAssignable(ctx, vehicle)
	if err != nil {
		return nil, err
	}

	drivers = m.narrowByPresence(ctx, pickup, radiusKm, drivers)

	candidates := make([]Candidate, 0, len(drivers))
	for _, d := range drivers {
		if !d.HasLocation() || !d.Assignable() {
			continue
		}
		dist := HaversineKm(pickup.Lat, pickup.Lng, *d.Lat, *d.Lng)
		if dist > radiusKm {
			continue
		}
		candidates = append(candidates, Candidate{Driver: d, DistanceKm: dist})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].Driver.Rating > candidates[j].Driver.Rating
	})

	return candidates, nil
}

// narrowByPresence keeps only drivers the presence index saw near the pickup.
// The index is never trusted to add candidates, and a failing or empty index
// leaves the store result untouched.
func (m *Matcher) narrowByPresence(ctx context.Context, pickup domain.Location, radiusKm float64, drivers []domain.Driver) []domain.Driver {
	if m.presence == nil {
		return drivers
	}
	ids, err := m.presence.NearbyIDs(ctx, pickup.Lat, pickup.Lng, radiusKm)
	if err != nil {
		m.logger.Debug("presence lookup failed, falling back to store scan",
			logx.Any("err", err))
		return drivers
	}
	if len(ids) == 0 {
		return drivers
	}

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	narrowed := drivers[:0]
	for _, d := range drivers {
		if _, ok := seen[d.ID]; ok {
			narrowed = append(narrowed, d)
		}
	}
	return narrowed
}
