package driver

import (
	"context"
	"strings"
	"time"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/service/match"
)

// Service coordinates driver business logic and orchestrates repository calls.
type Service struct {
	repo             driverRepository
	presence         presenceRecorder
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates and configures a driver Service. presence may be nil.
func NewService(r driverRepository, presence presenceRecorder, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             r,
		presence:         presence,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// validateCreate validates a driver for creation.
func validateCreate(d *domain.Driver) error {
	if d == nil {
		return apperr.ErrValidation
	}
	if strings.TrimSpace(d.Name) == "" {
		return apperr.ErrValidation
	}
	if !domain.ValidatePhone(d.Phone) {
		return apperr.ErrValidation
	}
	if d.VehicleType == "" {
		d.VehicleType = domain.VehicleBike
	}
	if !d.VehicleType.Valid() {
		return apperr.ErrValidation
	}
	return nil
}

func validateUpdate(u *domain.PartialDriverUpdate) error {
	if u.ID <= 0 {
		return apperr.ErrValidation
	}
	if u.Name == nil && u.Phone == nil && u.Online == nil &&
		u.Available == nil && u.Approved == nil && u.VehicleType == nil {
		return apperr.ErrValidation
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return apperr.ErrValidation
	}
	if u.Phone != nil && !domain.ValidatePhone(*u.Phone) {
		return apperr.ErrValidation
	}
	if u.VehicleType != nil && !u.VehicleType.Valid() {
		return apperr.ErrValidation
	}
	return nil
}

// Get retrieves a driver by its ID.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Driver, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.ErrNotFound
	}
	return d, nil
}

// List returns drivers with optional pagination
func (s *Service) List(ctx context.Context, limit, offset *int) ([]domain.Driver, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.List(ctx, limit, offset)
}

// Create persists a new driver and returns its generated ID.
func (s *Service) Create(ctx context.Context, d *domain.Driver) (int64, error) {
	if err := validateCreate(d); err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Create(ctx, d)
}

// UpdatePartial applies a partial update to a driver. It returns true if a row was updated.
func (s *Service) UpdatePartial(ctx context.Context, u domain.PartialDriverUpdate) (bool, error) {
	if err := validateUpdate(&u); err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ok, err := s.repo.UpdatePartial(ctx, u)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, apperr.ErrNotFound
	}
	return true, nil
}

// Heartbeat records the driver's current position in the store and mirrors
// it into the presence index.
func (s *Service) Heartbeat(ctx context.Context, id int64, lat, lng float64) error {
	if id <= 0 || !match.ValidCoordinates(lat, lng) {
		return apperr.ErrValidation
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ok, err := s.repo.UpdateLocation(ctx, id, lat, lng, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}

	if s.presence != nil {
		if err := s.presence.Record(ctx, id, lat, lng); err != nil {
			s.logger.Debug("presence record failed",
				logx.Int64("driver_id", id),
				logx.Any("err", err),
			)
		}
	}
	return nil
}
