package kafka_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parcel-dispatch/internal/service/payments"
	"parcel-dispatch/internal/transport/kafka"
)

func TestToDomain_TrimsAndCopiesFields(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	dto := kafka.EventDTO{
		PaymentID:  "  pay-1  ",
		DeliveryID: 7,
		Status:     "  paid  ",
		CreatedAt:  ts,
	}

	got := kafka.ToDomain(dto)

	require.Equal(t, payments.Event{
		PaymentID:  "pay-1",
		DeliveryID: 7,
		Status:     "paid",
		CreatedAt:  ts,
	}, got)
}
