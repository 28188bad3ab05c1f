package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/ports/deliverytx"
)

// DeliveryRepo represents the delivery store.
type DeliveryRepo struct {
	db *pgxpool.Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *DeliveryRepo) WithTx(ctx context.Context, fn func(tx deliverytx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// roll back on panic before re-raising
	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &TxRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

const deliveryColumns = `
	id, reference_id, customer_id,
	pickup_lat, pickup_lng, pickup_address, pickup_instructions,
	dropoff_lat, dropoff_lng, dropoff_address, dropoff_instructions,
	item_type, weight_kg, declared_value, fragile,
	vehicle_type,
	fare_base, fare_distance, fare_weight, fare_surcharge, fare_insurance, fare_total, currency,
	payment_method, payment_status, payment_id,
	driver_id, status,
	created_at, assigned_at, picked_up_at, in_transit_at,
	delivered_at, cancelled_at, returned_at, failed_at,
	cancel_actor, cancel_reason, cancel_fee, refund_status, cancelled_by_at,
	rating`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*domain.DeliveryRequest, error) {
	var (
		d            domain.DeliveryRequest
		cancelActor  *string
		cancelReason *string
		cancelFee    *float64
		refundStatus *string
		cancelledAt  *time.Time
	)

	err := row.Scan(
		&d.ID, &d.ReferenceID, &d.CustomerID,
		&d.Pickup.Lat, &d.Pickup.Lng, &d.Pickup.Address, &d.Pickup.Instructions,
		&d.Dropoff.Lat, &d.Dropoff.Lng, &d.Dropoff.Address, &d.Dropoff.Instructions,
		&d.Item.Type, &d.Item.WeightKg, &d.Item.DeclaredValue, &d.Item.Fragile,
		&d.VehicleType,
		&d.Fare.Base, &d.Fare.Distance, &d.Fare.Weight, &d.Fare.Surcharge, &d.Fare.Insurance, &d.Fare.Total, &d.Fare.Currency,
		&d.Payment.Method, &d.Payment.Status, &d.Payment.PaymentID,
		&d.DriverID, &d.Status,
		&d.CreatedAt, &d.AssignedAt, &d.PickedUpAt, &d.InTransitAt,
		&d.DeliveredAt, &d.CancelledAt, &d.ReturnedAt, &d.FailedAt,
		&cancelActor, &cancelReason, &cancelFee, &refundStatus, &cancelledAt,
		&d.Rating,
	)
	if err != nil {
		return nil, err
	}

	if cancelActor != nil {
		c := &domain.Cancellation{Actor: domain.CancelActor(*cancelActor)}
		if cancelReason != nil {
			c.Reason = *cancelReason
		}
		if cancelFee != nil {
			c.Fee = *cancelFee
		}
		if refundStatus != nil {
			c.RefundStatus = domain.PaymentStatus(*refundStatus)
		}
		if cancelledAt != nil {
			c.CancelledAt = *cancelledAt
		}
		d.Cancellation = c
	}

	return &d, nil
}

// GetDelivery fetches a delivery by id, nil when absent.
func (r *DeliveryRepo) GetDelivery(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery %d: %w", id, err)
	}
	return d, nil
}

// GetTracking returns the most recent tracking points for a delivery,
// newest first.
func (r *DeliveryRepo) GetTracking(ctx context.Context, deliveryID int64, limit int) ([]domain.TrackingPoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
        SELECT delivery_id, lat, lng, recorded_at
        FROM tracking_points
        WHERE delivery_id = $1
        ORDER BY recorded_at DESC
        LIMIT $2
    `, deliveryID, limit)
	if err != nil {
		return nil, fmt.Errorf("get tracking for delivery %d: %w", deliveryID, err)
	}
	defer rows.Close()

	var points []domain.TrackingPoint
	for rows.Next() {
		var p domain.TrackingPoint
		if err := rows.Scan(&p.DeliveryID, &p.Lat, &p.Lng, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan tracking point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// ListStalledCreated returns unassigned deliveries still in `created` that
// were created at or before the cutoff, oldest first. Used by the
// rebroadcast sweeper.
func (r *DeliveryRepo) ListStalledCreated(ctx context.Context, cutoff time.Time, limit int) ([]domain.DeliveryRequest, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+deliveryColumns+`
        FROM deliveries
        WHERE status = $1 AND driver_id IS NULL AND created_at <= $2
        ORDER BY created_at ASC
        LIMIT $3
    `, string(domain.StatusCreated), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stalled deliveries: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliveryRequest
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stalled delivery: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// SetRating records the customer rating once the delivery is completed.
// Ratings are write-once.
func (r *DeliveryRepo) SetRating(ctx context.Context, id int64, rating int) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE deliveries
        SET rating = $2
        WHERE id = $1 AND rating IS NULL AND status = $3
    `, id, rating, string(domain.StatusDelivered))
	if err != nil {
		return false, fmt.Errorf("set rating for delivery %d: %w", id, err)
	}
	return ct.RowsAffected() > 0, nil
}

// SetPaymentStatus updates the payment sub-record outside a transaction.
func (r *DeliveryRepo) SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	ct, err := r.db.Exec(ctx, `
        UPDATE deliveries SET payment_status = $2 WHERE id = $1
    `, id, string(status))
	if err != nil {
		return fmt.Errorf("set payment status for delivery %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %d not found", id)
	}
	return nil
}

// SetRefundOutcome records the settled refund state on both the payment and
// the cancellation record, so a completed refund never keeps reporting a
// pending reconciliation.
func (r *DeliveryRepo) SetRefundOutcome(ctx context.Context, id int64, status domain.PaymentStatus) error {
	ct, err := r.db.Exec(ctx, `
        UPDATE deliveries SET payment_status = $2, refund_status = $2 WHERE id = $1
    `, id, string(status))
	if err != nil {
		return fmt.Errorf("set refund outcome for delivery %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %d not found", id)
	}
	return nil
}

// RecordSettlement stores the provider's payment id together with the new
// payment status. Used by the settlement event consumer.
func (r *DeliveryRepo) RecordSettlement(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE deliveries SET payment_id = $2, payment_status = $3 WHERE id = $1
    `, id, paymentID, string(status))
	if err != nil {
		return false, fmt.Errorf("record settlement for delivery %d: %w", id, err)
	}
	return ct.RowsAffected() > 0, nil
}

// TxRepo is the transaction-scoped repository.
type TxRepo struct {
	tx pgx.Tx
}

// GetDeliveryForUpdate row-locks and returns a delivery, nil when absent.
func (r *TxRepo) GetDeliveryForUpdate(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 FOR UPDATE`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock delivery %d: %w", id, err)
	}
	return d, nil
}

// GetDriverForUpdate row-locks and returns a driver, nil when absent.
func (r *TxRepo) GetDriverForUpdate(ctx context.Context, id int64) (*domain.Driver, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT `+driverColumns+`
        FROM drivers WHERE id = $1 FOR UPDATE
    `, id)
	d, err := scanDriver(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock driver %d: %w", id, err)
	}
	return d, nil
}

// InsertDelivery persists a new delivery request and fills in its id.
func (r *TxRepo) InsertDelivery(ctx context.Context, d *domain.DeliveryRequest) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO deliveries (
            reference_id, customer_id,
            pickup_lat, pickup_lng, pickup_address, pickup_instructions,
            dropoff_lat, dropoff_lng, dropoff_address, dropoff_instructions,
            item_type, weight_kg, declared_value, fragile,
            vehicle_type,
            fare_base, fare_distance, fare_weight, fare_surcharge, fare_insurance, fare_total, currency,
            payment_method, payment_status, payment_id,
            status, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
            $11, $12, $13, $14, $15,
            $16, $17, $18, $19, $20, $21, $22,
            $23, $24, $25, $26, $27
        )
        RETURNING id
    `,
		d.ReferenceID, d.CustomerID,
		d.Pickup.Lat, d.Pickup.Lng, d.Pickup.Address, d.Pickup.Instructions,
		d.Dropoff.Lat, d.Dropoff.Lng, d.Dropoff.Address, d.Dropoff.Instructions,
		string(d.Item.Type), d.Item.WeightKg, d.Item.DeclaredValue, d.Item.Fragile,
		string(d.VehicleType),
		d.Fare.Base, d.Fare.Distance, d.Fare.Weight, d.Fare.Surcharge, d.Fare.Insurance, d.Fare.Total, d.Fare.Currency,
		string(d.Payment.Method), string(d.Payment.Status), d.Payment.PaymentID,
		string(d.Status), d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// BindDelivery conditionally attaches a driver to a still-unassigned delivery.
func (r *TxRepo) BindDelivery(ctx context.Context, deliveryID, driverID int64, at time.Time) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET driver_id = $2, status = $3, assigned_at = $4
        WHERE id = $1 AND status = $5 AND driver_id IS NULL
    `, deliveryID, driverID, string(domain.StatusAssigned), at, string(domain.StatusCreated))
	if err != nil {
		return false, fmt.Errorf("bind delivery %d to driver %d: %w", deliveryID, driverID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// BindDriver conditionally attaches a delivery to a still-assignable driver.
func (r *TxRepo) BindDriver(ctx context.Context, driverID, deliveryID int64) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE drivers
        SET current_delivery_id = $2, available = FALSE, updated_at = now()
        WHERE id = $1
          AND online AND available AND approved
          AND current_delivery_id IS NULL
    `, driverID, deliveryID)
	if err != nil {
		return false, fmt.Errorf("bind driver %d to delivery %d: %w", driverID, deliveryID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// enteredAtColumn maps a status to its timestamp column. Only these names
// ever reach the SQL below.
func enteredAtColumn(s domain.DeliveryStatus) string {
	switch s {
	case domain.StatusAssigned:
		return "assigned_at"
	case domain.StatusPickedUp:
		return "picked_up_at"
	case domain.StatusInTransit:
		return "in_transit_at"
	case domain.StatusDelivered:
		return "delivered_at"
	case domain.StatusCancelled:
		return "cancelled_at"
	case domain.StatusReturned:
		return "returned_at"
	case domain.StatusFailed:
		return "failed_at"
	default:
		return ""
	}
}

// UpdateStatus conditionally moves a delivery between two exact statuses.
func (r *TxRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.DeliveryStatus, at time.Time) (bool, error) {
	col := enteredAtColumn(to)
	if col == "" {
		return false, fmt.Errorf("status %q has no timestamp column", to)
	}
	query := fmt.Sprintf(`
        UPDATE deliveries
        SET status = $2, %s = $3
        WHERE id = $1 AND status = $4
    `, col)
	ct, err := r.tx.Exec(ctx, query, id, string(to), at, string(from))
	if err != nil {
		return false, fmt.Errorf("update delivery %d status %s -> %s: %w", id, from, to, err)
	}
	return ct.RowsAffected() > 0, nil
}

// ReleaseDriver frees a driver from the given delivery.
func (r *TxRepo) ReleaseDriver(ctx context.Context, driverID, deliveryID int64) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE drivers
        SET current_delivery_id = NULL, available = TRUE, updated_at = now()
        WHERE id = $1 AND current_delivery_id = $2
    `, driverID, deliveryID)
	if err != nil {
		return false, fmt.Errorf("release driver %d from delivery %d: %w", driverID, deliveryID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// IncrementDriverCompleted bumps the driver's completed deliveries counter.
func (r *TxRepo) IncrementDriverCompleted(ctx context.Context, driverID int64) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE drivers
        SET completed_count = completed_count + 1, updated_at = now()
        WHERE id = $1
    `, driverID)
	if err != nil {
		return fmt.Errorf("increment completed for driver %d: %w", driverID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("driver %d not found", driverID)
	}
	return nil
}

// SetCancellation records the cancellation details on the delivery row.
func (r *TxRepo) SetCancellation(ctx context.Context, id int64, c domain.Cancellation) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET cancel_actor = $2, cancel_reason = $3, cancel_fee = $4,
            refund_status = $5, cancelled_by_at = $6
        WHERE id = $1
    `, id, string(c.Actor), c.Reason, c.Fee, string(c.RefundStatus), c.CancelledAt)
	if err != nil {
		return fmt.Errorf("set cancellation for delivery %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %d not found", id)
	}
	return nil
}

// SetPaymentStatus updates the payment sub-record within the transaction.
func (r *TxRepo) SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE deliveries SET payment_status = $2 WHERE id = $1
    `, id, string(status))
	if err != nil {
		return fmt.Errorf("set payment status for delivery %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %d not found", id)
	}
	return nil
}

// InsertTrackingPoint appends to the tracking history.
func (r *TxRepo) InsertTrackingPoint(ctx context.Context, p domain.TrackingPoint) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO tracking_points (delivery_id, lat, lng, recorded_at)
        VALUES ($1, $2, $3, $4)
    `, p.DeliveryID, p.Lat, p.Lng, p.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert tracking point for delivery %d: %w", p.DeliveryID, err)
	}
	return nil
}
