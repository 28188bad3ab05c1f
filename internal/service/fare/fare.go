package fare

import (
	"math"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
)

// Currency is the settlement currency for all fares.
const Currency = "NGN"

const (
	fragileSurcharge = 100

	// insurance applies above this declared value, at 0.5%
	insuranceThreshold = 10_000
	insuranceRate      = 0.005

	roundingUnit = 10
)

type vehicleRates struct {
	base    float64
	perKm   float64
	perKg   float64
	minimum float64
}

var ratesByVehicle = map[domain.VehicleType]vehicleRates{
	domain.VehicleBike:      {base: 200, perKm: 50, perKg: 20, minimum: 300},
	domain.VehicleMotorbike: {base: 300, perKm: 60, perKg: 25, minimum: 400},
	domain.VehicleCar:       {base: 500, perKm: 100, perKg: 30, minimum: 700},
	domain.VehicleVan:       {base: 800, perKm: 150, perKg: 50, minimum: 1200},
}

var itemSurcharges = map[domain.ItemType]float64{
	domain.ItemElectronics: 150,
	domain.ItemFurniture:   300,
}

// QuoteInput carries everything the fare computation depends on.
type QuoteInput struct {
	DistanceKm    float64
	WeightKg      float64
	VehicleType   domain.VehicleType
	ItemType      domain.ItemType
	Fragile       bool
	DeclaredValue float64
	Surge         float64 // 0 means no surge; otherwise must be >= 1
}

// Quote computes a deterministic fare breakdown. Components always sum to
// Total before rounding; Total is then rounded up to the nearest 10 units
// and never falls below the per-vehicle minimum.
func Quote(in QuoteInput) (domain.FareBreakdown, error) {
	if err := validate(in); err != nil {
		return domain.FareBreakdown{}, err
	}

	rates, ok := ratesByVehicle[in.VehicleType]
	if !ok {
		return domain.FareBreakdown{}, apperr.ErrValidation
	}

	surge := in.Surge
	if surge == 0 {
		surge = 1
	}

	b := domain.FareBreakdown{
		Base:     rates.base * surge,
		Distance: in.DistanceKm * rates.perKm * surge,
		Weight:   in.WeightKg * rates.perKg,
		Currency: Currency,
	}

	if in.Fragile {
		b.Surcharge += fragileSurcharge
	}
	b.Surcharge += itemSurcharges[in.ItemType]

	if in.DeclaredValue > insuranceThreshold {
		b.Insurance = in.DeclaredValue * insuranceRate
	}

	total := b.Base + b.Distance + b.Weight + b.Surcharge + b.Insurance

	// The minimum fare floor is booked as a surcharge so the components
	// still sum to the total.
	if total < rates.minimum {
		b.Surcharge += rates.minimum - total
		total = rates.minimum
	}

	b.Total = roundUp(total)
	return b, nil
}

func validate(in QuoteInput) error {
	for _, v := range []float64{in.DistanceKm, in.WeightKg, in.DeclaredValue, in.Surge} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return apperr.ErrValidation
		}
	}
	if in.Surge != 0 && in.Surge < 1 {
		return apperr.ErrValidation
	}
	if !in.VehicleType.Valid() {
		return apperr.ErrValidation
	}
	return nil
}

// roundUp rounds to the next multiple of the rounding unit. The epsilon
// keeps exact multiples from being pushed a full unit higher by float noise.
func roundUp(v float64) float64 {
	return math.Ceil(v/roundingUnit-1e-9) * roundingUnit
}

// MinimumFor returns the minimum fare floor for a vehicle type.
func MinimumFor(vt domain.VehicleType) float64 {
	return ratesByVehicle[vt].minimum
}
