package cancel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/ports/deliverytx"
	"parcel-dispatch/internal/service/cancel"
)

type stubTx struct {
	getDeliveryFn  func(ctx context.Context, id int64) (*domain.DeliveryRequest, error)
	updateStatusFn func(ctx context.Context, id int64, from, to domain.DeliveryStatus, at time.Time) (bool, error)
	releaseFn      func(ctx context.Context, driverID, deliveryID int64) (bool, error)
	setCancelFn    func(ctx context.Context, id int64, c domain.Cancellation) error
	setPaymentFn   func(ctx context.Context, id int64, status domain.PaymentStatus) error
}

func (s *stubTx) GetDeliveryForUpdate(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
	if s.getDeliveryFn == nil {
		return nil, nil
	}
	return s.getDeliveryFn(ctx, id)
}

func (s *stubTx) GetDriverForUpdate(ctx context.Context, id int64) (*domain.Driver, error) {
	panic("not used in cancel tests")
}

func (s *stubTx) InsertDelivery(ctx context.Context, d *domain.DeliveryRequest) error {
	panic("not used in cancel tests")
}

func (s *stubTx) BindDelivery(ctx context.Context, deliveryID, driverID int64, at time.Time) (bool, error) {
	panic("not used in cancel tests")
}

func (s *stubTx) BindDriver(ctx context.Context, driverID, deliveryID int64) (bool, error) {
	panic("not used in cancel tests")
}

func (s *stubTx) UpdateStatus(ctx context.Context, id int64, from, to domain.DeliveryStatus, at time.Time) (bool, error) {
	if s.updateStatusFn == nil {
		return true, nil
	}
	return s.updateStatusFn(ctx, id, from, to, at)
}

func (s *stubTx) ReleaseDriver(ctx context.Context, driverID, deliveryID int64) (bool, error) {
	if s.releaseFn == nil {
		return true, nil
	}
	return s.releaseFn(ctx, driverID, deliveryID)
}

func (s *stubTx) IncrementDriverCompleted(ctx context.Context, driverID int64) error {
	panic("not used in cancel tests")
}

func (s *stubTx) SetCancellation(ctx context.Context, id int64, c domain.Cancellation) error {
	if s.setCancelFn == nil {
		return nil
	}
	return s.setCancelFn(ctx, id, c)
}

func (s *stubTx) SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	if s.setPaymentFn == nil {
		return nil
	}
	return s.setPaymentFn(ctx, id, status)
}

func (s *stubTx) InsertTrackingPoint(ctx context.Context, p domain.TrackingPoint) error {
	panic("not used in cancel tests")
}

type stubRunner struct{ tx *stubTx }

func (s stubRunner) WithTx(ctx context.Context, fn func(tx deliverytx.Repository) error) error {
	return fn(s.tx)
}

type stubStore struct {
	statuses map[int64]domain.PaymentStatus
}

func (s *stubStore) SetRefundOutcome(ctx context.Context, id int64, status domain.PaymentStatus) error {
	if s.statuses == nil {
		s.statuses = map[int64]domain.PaymentStatus{}
	}
	s.statuses[id] = status
	return nil
}

type recordingNotifier struct {
	cancelled []int64
	payloads  []map[string]string
}

func (n *recordingNotifier) NotifyDriver(ctx context.Context, driverID int64, ev notify.Event) error {
	return nil
}

func (n *recordingNotifier) NotifyCustomer(ctx context.Context, customerID int64, ev notify.Event) error {
	if ev.Kind == notify.KindDeliveryCancel {
		n.cancelled = append(n.cancelled, customerID)
		n.payloads = append(n.payloads, ev.Payload)
	}
	return nil
}

type stubRefunder struct {
	err   error
	calls []float64
}

func (s *stubRefunder) Refund(ctx context.Context, paymentID string, amount float64) error {
	s.calls = append(s.calls, amount)
	return s.err
}

type stubAborter struct{ aborted []int64 }

func (s *stubAborter) Abort(deliveryID int64) { s.aborted = append(s.aborted, deliveryID) }

func newService(tx *stubTx, ref *stubRefunder, ab *stubAborter) (*cancel.Service, *stubStore, prometheus.Counter) {
	store := &stubStore{}
	pending := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_refunds_pending_total"})
	svc := cancel.NewService(stubRunner{tx: tx}, store, ref, ab, notify.NewNopDispatcher(), pending, time.Second, logx.Nop())
	return svc, store, pending
}

func paidDelivery(status domain.DeliveryStatus) *domain.DeliveryRequest {
	drID := int64(42)
	d := &domain.DeliveryRequest{
		ID:         7,
		CustomerID: 5,
		Status:     status,
		Fare:       domain.FareBreakdown{Total: 1000, Currency: "NGN"},
		Payment: domain.Payment{
			Method:    domain.PayCard,
			Status:    domain.PaymentPaid,
			PaymentID: "pay-7",
		},
	}
	if status != domain.StatusCreated {
		d.DriverID = &drID
	}
	return d
}

func TestCancel_Created_NoFee_FullRefund(t *testing.T) {
	t.Parallel()

	var recorded domain.Cancellation
	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return paidDelivery(domain.StatusCreated), nil
		},
		setCancelFn: func(ctx context.Context, id int64, c domain.Cancellation) error {
			recorded = c
			return nil
		},
		releaseFn: func(ctx context.Context, driverID, deliveryID int64) (bool, error) {
			t.Fatal("no driver to release on a created delivery")
			return false, nil
		},
	}
	ref := &stubRefunder{}
	ab := &stubAborter{}
	svc, store, _ := newService(tx, ref, ab)

	got, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "changed my mind",
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, got.Fee)
	require.Equal(t, 1000.0, got.RefundAmount)
	require.Equal(t, domain.PaymentRefunded, got.RefundStatus)
	require.Equal(t, []float64{1000}, ref.calls)
	require.Equal(t, domain.PaymentRefunded, store.statuses[7])
	require.Equal(t, []int64{7}, ab.aborted)
	require.Equal(t, domain.ActorCustomer, recorded.Actor)
	require.Equal(t, "changed my mind", recorded.Reason)
}

func TestCancel_Assigned_TenPercentFee_ReleasesDriver(t *testing.T) {
	t.Parallel()

	released := false
	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return paidDelivery(domain.StatusAssigned), nil
		},
		releaseFn: func(ctx context.Context, driverID, deliveryID int64) (bool, error) {
			require.Equal(t, int64(42), driverID)
			released = true
			return true, nil
		},
	}
	ref := &stubRefunder{}
	ab := &stubAborter{}
	svc, _, _ := newService(tx, ref, ab)

	got, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "too slow",
	})
	require.NoError(t, err)
	require.True(t, released)
	require.Equal(t, 100.0, got.Fee)
	require.Equal(t, 900.0, got.RefundAmount)
	require.Empty(t, ab.aborted, "no broadcast to abort once assigned")
}

func TestCancel_PickedUp_TwentyPercentFee(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return paidDelivery(domain.StatusPickedUp), nil
		},
	}
	svc, _, _ := newService(tx, &stubRefunder{}, &stubAborter{})

	got, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorDriver, Reason: "recipient unreachable",
	})
	require.NoError(t, err)
	require.Equal(t, 200.0, got.Fee)
	require.Equal(t, 800.0, got.RefundAmount)
}

func TestCancel_InTransit_Illegal(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return paidDelivery(domain.StatusInTransit), nil
		},
	}
	svc, _, _ := newService(tx, &stubRefunder{}, &stubAborter{})

	_, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "too late",
	})
	require.True(t, apperr.IsTransition(err))
}

func TestCancel_RefundFailure_ParksAsPending(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return paidDelivery(domain.StatusCreated), nil
		},
	}
	ref := &stubRefunder{err: errors.New("gateway down")}
	svc, store, pending := newService(tx, ref, &stubAborter{})

	got, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "changed my mind",
	})
	require.NoError(t, err, "cancellation itself must survive a refund outage")
	require.Equal(t, domain.PaymentRefundPending, got.RefundStatus)
	require.Empty(t, store.statuses, "payment stays refund_pending from the committed tx")
	require.Equal(t, float64(1), testutil.ToFloat64(pending))
}

func TestCancel_CashNoRefund(t *testing.T) {
	t.Parallel()

	d := paidDelivery(domain.StatusCreated)
	d.Payment = domain.Payment{Method: domain.PayCash, Status: domain.PaymentPending}
	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return d, nil
		},
		setPaymentFn: func(ctx context.Context, id int64, status domain.PaymentStatus) error {
			t.Fatal("cash deliveries have nothing to refund")
			return nil
		},
	}
	ref := &stubRefunder{}
	svc, _, _ := newService(tx, ref, &stubAborter{})

	got, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "duplicate order",
	})
	require.NoError(t, err)
	require.Empty(t, ref.calls)
	require.Equal(t, 0.0, got.RefundAmount)
}

func TestCancel_AlreadyCancelled_Idempotent(t *testing.T) {
	t.Parallel()

	d := paidDelivery(domain.StatusCancelled)
	d.Cancellation = &domain.Cancellation{
		Actor:        domain.ActorCustomer,
		Reason:       "changed my mind",
		Fee:          100,
		RefundStatus: domain.PaymentRefunded,
	}
	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return d, nil
		},
		updateStatusFn: func(ctx context.Context, id int64, from, to domain.DeliveryStatus, at time.Time) (bool, error) {
			t.Fatal("a second cancel must not write")
			return false, nil
		},
	}
	ref := &stubRefunder{}
	svc, _, _ := newService(tx, ref, &stubAborter{})

	got, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "changed my mind",
	})
	require.NoError(t, err)
	require.Empty(t, ref.calls, "repeat cancel must not refund twice")
	require.Equal(t, 100.0, got.Fee)
	require.Equal(t, 900.0, got.RefundAmount)
	require.Equal(t, domain.PaymentRefunded, got.RefundStatus)
}

func TestCancel_RefundSuccess_ClearsPendingRecord(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return paidDelivery(domain.StatusCreated), nil
		},
	}
	ref := &stubRefunder{}
	svc, store, pending := newService(tx, ref, &stubAborter{})

	got, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "changed my mind",
	})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentRefunded, got.RefundStatus)
	require.Equal(t, domain.PaymentRefunded, got.Delivery.Cancellation.RefundStatus)
	require.Equal(t, domain.PaymentRefunded, store.statuses[7],
		"a settled refund must not stay parked as refund_pending in the store")
	require.Equal(t, float64(0), testutil.ToFloat64(pending))
}

func TestCancel_NotifiesCustomer(t *testing.T) {
	t.Parallel()

	tx := &stubTx{
		getDeliveryFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return paidDelivery(domain.StatusAssigned), nil
		},
	}
	n := &recordingNotifier{}
	pending := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_refunds_pending_notify_total"})
	svc := cancel.NewService(stubRunner{tx: tx}, &stubStore{}, &stubRefunder{}, &stubAborter{}, n, pending, time.Second, logx.Nop())

	_, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "too slow",
	})
	require.NoError(t, err)
	require.Equal(t, []int64{5}, n.cancelled)
	require.Equal(t, "7", n.payloads[0]["delivery_id"])
	require.Equal(t, string(domain.PaymentRefunded), n.payloads[0]["refund_status"])
}

func TestCancel_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(&stubTx{}, &stubRefunder{}, &stubAborter{})

	cases := []cancel.Input{
		{DeliveryID: 0, Actor: domain.ActorCustomer, Reason: "x"},
		{DeliveryID: 7, Actor: "ghost", Reason: "x"},
		{DeliveryID: 7, Actor: domain.ActorCustomer, Reason: "   "},
	}
	for _, in := range cases {
		_, err := svc.Cancel(context.Background(), in)
		require.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestCancel_NotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(&stubTx{}, &stubRefunder{}, &stubAborter{})

	_, err := svc.Cancel(context.Background(), cancel.Input{
		DeliveryID: 404, Actor: domain.ActorCustomer, Reason: "x",
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
