package delivery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/ports/deliverytx"
	"parcel-dispatch/internal/service/fare"
	"parcel-dispatch/internal/service/match"
)

// Options tunes the dispatch behaviour of the Service.
type Options struct {
	SearchRadiusKm float64
	MaxCandidates  int
	// StalledAfter is how long a delivery may sit in created with no driver
	// before the sweeper re-broadcasts it.
	StalledAfter time.Duration
	SweepLimit   int
	Timeout      time.Duration
}

// Service is the delivery use case layer: it prices and stores new requests,
// dispatches them to drivers, and arbitrates driver acceptance.
type Service struct {
	repo       deliveryRepository
	drivers    driverGetter
	matcher    candidateRanker
	geocoder   addressResolver
	broadcasts broadcast
	notifier   notify.Dispatcher
	refs       ReferenceFactory
	conflicts  prometheus.Counter
	opts       Options
	logger     logx.Logger
	now        func() time.Time
}

// NewService - creates a new delivery Service. geocoder may be nil.
func NewService(
	repo deliveryRepository,
	drivers driverGetter,
	matcher candidateRanker,
	geocoder addressResolver,
	broadcasts broadcast,
	notifier notify.Dispatcher,
	refs ReferenceFactory,
	conflicts prometheus.Counter,
	opts Options,
	logger logx.Logger,
) *Service {
	if opts.SearchRadiusKm <= 0 {
		opts.SearchRadiusKm = 5
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 10
	}
	if opts.StalledAfter <= 0 {
		opts.StalledAfter = time.Minute
	}
	if opts.SweepLimit <= 0 {
		opts.SweepLimit = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	return &Service{
		repo:       repo,
		drivers:    drivers,
		matcher:    matcher,
		geocoder:   geocoder,
		broadcasts: broadcasts,
		notifier:   notifier,
		refs:       refs,
		conflicts:  conflicts,
		opts:       opts,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.Timeout)
}

// CreateInput is a new delivery request from a customer.
type CreateInput struct {
	CustomerID    int64
	Pickup        domain.Location
	Dropoff       domain.Location
	Item          domain.Item
	VehicleType   domain.VehicleType
	PaymentMethod domain.PaymentMethod
}

// Create prices and stores a new delivery request, then starts the offer
// cascade to nearby drivers. The delivery is returned in created even when
// no driver is around; the sweeper keeps retrying the broadcast.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.DeliveryRequest, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	distance := match.HaversineKm(in.Pickup.Lat, in.Pickup.Lng, in.Dropoff.Lat, in.Dropoff.Lng)
	breakdown, err := fare.Quote(fare.QuoteInput{
		DistanceKm:    distance,
		WeightKg:      in.Item.WeightKg,
		VehicleType:   in.VehicleType,
		ItemType:      in.Item.Type,
		Fragile:       in.Item.Fragile,
		DeclaredValue: in.Item.DeclaredValue,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &domain.DeliveryRequest{
		ReferenceID: s.refs.NewReference(now),
		CustomerID:  in.CustomerID,
		Pickup:      s.resolveAddress(ctx, in.Pickup),
		Dropoff:     s.resolveAddress(ctx, in.Dropoff),
		Item:        in.Item,
		VehicleType: in.VehicleType,
		Fare:        breakdown,
		Payment: domain.Payment{
			Method: in.PaymentMethod,
			Status: domain.PaymentPending,
		},
		Status:    domain.StatusCreated,
		CreatedAt: now,
	}

	txCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	err = s.repo.WithTx(txCtx, func(tx deliverytx.Repository) error {
		return tx.InsertDelivery(txCtx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("delivery created",
		logx.String("event", "delivery_created"),
		logx.Int64("delivery_id", d.ID),
		logx.String("reference_id", d.ReferenceID),
		logx.Float64("fare_total", d.Fare.Total),
		logx.Float64("distance_km", distance),
	)

	s.dispatch(ctx, d)
	return d, nil
}

// dispatch ranks nearby drivers and hands the delivery to the broadcaster.
func (s *Service) dispatch(ctx context.Context, d *domain.DeliveryRequest) {
	vehicle := d.VehicleType
	candidates, err := s.matcher.Rank(ctx, d.Pickup, s.opts.SearchRadiusKm, &vehicle)
	if err != nil {
		s.logger.Error("candidate ranking failed",
			logx.Int64("delivery_id", d.ID),
			logx.Any("err", err),
		)
		return
	}
	if len(candidates) > s.opts.MaxCandidates {
		candidates = candidates[:s.opts.MaxCandidates]
	}
	drivers := make([]domain.Driver, 0, len(candidates))
	for _, c := range candidates {
		drivers = append(drivers, c.Driver)
	}
	s.broadcasts.Start(d.ID, d.CustomerID, drivers)
}

// resolveAddress fills in a missing address, falling back to the raw
// coordinates when the geocoder is absent or fails.
func (s *Service) resolveAddress(ctx context.Context, loc domain.Location) domain.Location {
	if loc.Address != "" {
		return loc
	}
	if s.geocoder != nil {
		addr, err := s.geocoder.ResolveAddress(ctx, loc.Lat, loc.Lng)
		if err == nil && addr != "" {
			loc.Address = addr
			return loc
		}
		s.logger.Debug("reverse geocode failed", logx.Any("err", err))
	}
	loc.Address = fmt.Sprintf("%.6f,%.6f", loc.Lat, loc.Lng)
	return loc
}

// Accept binds a driver to a delivery. Both sides of the binding are
// conditional writes inside one transaction, so of N racing drivers exactly
// one wins and the rest get ErrConflict.
func (s *Service) Accept(ctx context.Context, deliveryID, driverID int64) (domain.AssignResult, error) {
	if deliveryID <= 0 || driverID <= 0 {
		return domain.AssignResult{}, apperr.ErrValidation
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result domain.AssignResult
	err := s.repo.WithTx(ctx, func(tx deliverytx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if d.Status != domain.StatusCreated || d.DriverID != nil {
			return apperr.ErrConflict
		}

		driver, err := tx.GetDriverForUpdate(ctx, driverID)
		if err != nil {
			return err
		}
		if driver == nil {
			return apperr.ErrNotFound
		}
		if !driver.Assignable() {
			return apperr.ErrConflict
		}

		now := s.now()
		ok, err := tx.BindDelivery(ctx, deliveryID, driverID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrConflict
		}
		ok, err = tx.BindDriver(ctx, driverID, deliveryID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrConflict
		}

		result = domain.AssignResult{
			DeliveryID:  deliveryID,
			ReferenceID: d.ReferenceID,
			DriverID:    driverID,
			AssignedAt:  now,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.conflicts.Inc()
			// The loser was holding up the cascade if it was the active
			// candidate; move the offer along instead of waiting out the timer.
			s.broadcasts.Advance(deliveryID, driverID)
		}
		return domain.AssignResult{}, err
	}

	s.broadcasts.Settle(deliveryID)
	s.notifyAssigned(ctx, result)

	s.logger.Info("driver assigned",
		logx.String("event", "driver_assigned"),
		logx.Int64("delivery_id", result.DeliveryID),
		logx.Int64("driver_id", result.DriverID),
		logx.String("reference_id", result.ReferenceID),
	)
	return result, nil
}

func (s *Service) notifyAssigned(ctx context.Context, r domain.AssignResult) {
	ev := notify.Event{
		Kind: notify.KindAssigned,
		Payload: map[string]string{
			"delivery_id":  strconv.FormatInt(r.DeliveryID, 10),
			"reference_id": r.ReferenceID,
		},
	}
	if err := s.notifier.NotifyDriver(ctx, r.DriverID, ev); err != nil {
		s.logger.Warn("assignment notification failed",
			logx.Int64("driver_id", r.DriverID),
			logx.Any("err", err),
		)
	}
}

// Get returns one delivery by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
	if id <= 0 {
		return nil, apperr.ErrValidation
	}
	d, err := s.repo.GetDelivery(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.ErrNotFound
	}
	return d, nil
}

// Track returns the live position snapshot and recent tracking history.
// The ETA points at the pickup until the parcel is on board, then at the
// dropoff.
func (s *Service) Track(ctx context.Context, id int64) (domain.TrackResult, []domain.TrackingPoint, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return domain.TrackResult{}, nil, err
	}

	result := domain.TrackResult{Status: d.Status, DriverID: d.DriverID}
	if d.DriverID != nil {
		driver, err := s.drivers.Get(ctx, *d.DriverID)
		if err != nil {
			return domain.TrackResult{}, nil, err
		}
		if driver != nil && driver.HasLocation() {
			result.DriverLocation = &domain.Location{Lat: *driver.Lat, Lng: *driver.Lng}

			target := d.Dropoff
			if d.Status == domain.StatusAssigned {
				target = d.Pickup
			}
			eta := match.EtaMinutes(match.HaversineKm(*driver.Lat, *driver.Lng, target.Lat, target.Lng))
			result.EtaMinutes = &eta
		}
	}

	history, err := s.repo.GetTracking(ctx, id, 0)
	if err != nil {
		return domain.TrackResult{}, nil, err
	}
	return result, history, nil
}

// Rebroadcast restarts the offer cascade for a delivery that is still
// waiting for a driver.
func (s *Service) Rebroadcast(ctx context.Context, id int64) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.Status != domain.StatusCreated || d.DriverID != nil {
		return apperr.ErrConflict
	}
	if s.broadcasts.Active(id) {
		return nil
	}
	s.dispatch(ctx, d)
	return nil
}

// SweepStalled re-broadcasts deliveries that sat unassigned longer than
// StalledAfter. Returns how many broadcasts were restarted.
func (s *Service) SweepStalled(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.opts.StalledAfter)
	stalled, err := s.repo.ListStalledCreated(ctx, cutoff, s.opts.SweepLimit)
	if err != nil {
		return 0, err
	}

	restarted := 0
	for i := range stalled {
		d := &stalled[i]
		if s.broadcasts.Active(d.ID) {
			continue
		}
		s.dispatch(ctx, d)
		restarted++
	}
	if restarted > 0 {
		s.logger.Info("stalled deliveries rebroadcast",
			logx.String("event", "sweep_rebroadcast"),
			logx.Int("count", restarted),
		)
	}
	return restarted, nil
}

// Rate records the customer's one-time rating of a delivered delivery.
func (s *Service) Rate(ctx context.Context, id int64, rating int) error {
	if rating < 1 || rating > 5 {
		return apperr.ErrValidation
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	ok, err := s.repo.SetRating(ctx, id, rating)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrConflict
	}
	return nil
}

func validateCreate(in CreateInput) error {
	switch {
	case in.CustomerID <= 0,
		!match.ValidCoordinates(in.Pickup.Lat, in.Pickup.Lng),
		!match.ValidCoordinates(in.Dropoff.Lat, in.Dropoff.Lng),
		!in.Item.Type.Valid(),
		in.Item.WeightKg < 0,
		in.Item.DeclaredValue < 0,
		!in.VehicleType.Valid(),
		!in.PaymentMethod.Valid():
		return apperr.ErrValidation
	}
	return nil
}
