package payments_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/service/payments"
)

type stubStore struct {
	getFn    func(ctx context.Context, id int64) (*domain.DeliveryRequest, error)
	recordFn func(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error)
}

func (s *stubStore) GetDelivery(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id)
}

func (s *stubStore) RecordSettlement(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error) {
	if s.recordFn == nil {
		return true, nil
	}
	return s.recordFn(ctx, id, paymentID, status)
}

type recordingNotifier struct {
	driverEvents []notify.Event
}

func (n *recordingNotifier) NotifyDriver(ctx context.Context, driverID int64, ev notify.Event) error {
	n.driverEvents = append(n.driverEvents, ev)
	return nil
}

func (n *recordingNotifier) NotifyCustomer(ctx context.Context, customerID int64, ev notify.Event) error {
	return nil
}

func TestHandle_Paid_RecordsAndNotifiesDriver(t *testing.T) {
	t.Parallel()

	drID := int64(42)
	var gotStatus domain.PaymentStatus
	store := &stubStore{
		getFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return &domain.DeliveryRequest{ID: id, DriverID: &drID, Status: domain.StatusAssigned}, nil
		},
		recordFn: func(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error) {
			require.Equal(t, "pay-1", paymentID)
			gotStatus = status
			return true, nil
		},
	}
	n := &recordingNotifier{}
	p := payments.NewProcessor(store, n, logx.Nop())

	err := p.Handle(context.Background(), payments.Event{
		PaymentID:  "pay-1",
		DeliveryID: 7,
		Status:     "  PAID  ",
	})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPaid, gotStatus)
	require.Len(t, n.driverEvents, 1)
	require.Equal(t, notify.KindPaymentSettled, n.driverEvents[0].Kind)
}

func TestHandle_Paid_UnassignedDeliveryNoNotification(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		getFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return &domain.DeliveryRequest{ID: id, Status: domain.StatusCreated}, nil
		},
	}
	n := &recordingNotifier{}
	p := payments.NewProcessor(store, n, logx.Nop())

	err := p.Handle(context.Background(), payments.Event{PaymentID: "pay-1", DeliveryID: 7, Status: "success"})
	require.NoError(t, err)
	require.Empty(t, n.driverEvents)
}

func TestHandle_Paid_UnknownDeliveryDropped(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		recordFn: func(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error) {
			t.Fatal("must not record settlement for unknown delivery")
			return false, nil
		},
	}
	p := payments.NewProcessor(store, &recordingNotifier{}, logx.Nop())

	err := p.Handle(context.Background(), payments.Event{PaymentID: "pay-1", DeliveryID: 404, Status: "paid"})
	require.NoError(t, err)
}

func TestHandle_Failed_RecordsFailure(t *testing.T) {
	t.Parallel()

	var gotStatus domain.PaymentStatus
	store := &stubStore{
		recordFn: func(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error) {
			gotStatus = status
			return true, nil
		},
	}
	p := payments.NewProcessor(store, &recordingNotifier{}, logx.Nop())

	require.NoError(t, p.Handle(context.Background(), payments.Event{DeliveryID: 7, Status: "declined"}))
	require.Equal(t, domain.PaymentFailed, gotStatus)
}

func TestHandle_Refunded_RecordsRefund(t *testing.T) {
	t.Parallel()

	var gotStatus domain.PaymentStatus
	store := &stubStore{
		recordFn: func(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error) {
			gotStatus = status
			return true, nil
		},
	}
	p := payments.NewProcessor(store, &recordingNotifier{}, logx.Nop())

	require.NoError(t, p.Handle(context.Background(), payments.Event{DeliveryID: 7, Status: "refunded"}))
	require.Equal(t, domain.PaymentRefunded, gotStatus)
}

func TestHandle_UnknownStatus_NoOps(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		recordFn: func(ctx context.Context, id int64, paymentID string, status domain.PaymentStatus) (bool, error) {
			t.Fatal("unknown status must not touch the store")
			return false, nil
		},
	}
	p := payments.NewProcessor(store, &recordingNotifier{}, logx.Nop())

	require.NoError(t, p.Handle(context.Background(), payments.Event{DeliveryID: 7, Status: "some-new-status"}))
}

func TestHandle_StoreErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("boom")
	store := &stubStore{
		getFn: func(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
			return nil, wantErr
		},
	}
	p := payments.NewProcessor(store, &recordingNotifier{}, logx.Nop())

	err := p.Handle(context.Background(), payments.Event{DeliveryID: 7, Status: "paid"})
	require.ErrorIs(t, err, wantErr)
}
