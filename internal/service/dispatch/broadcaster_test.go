package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
	"parcel-dispatch/internal/service/dispatch"
)

type recordingNotifier struct {
	offered   chan int64
	withdrawn chan int64
	noDriver  chan int64
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		offered:   make(chan int64, 16),
		withdrawn: make(chan int64, 16),
		noDriver:  make(chan int64, 16),
	}
}

func (n *recordingNotifier) NotifyDriver(ctx context.Context, driverID int64, ev notify.Event) error {
	switch ev.Kind {
	case notify.KindOffer:
		n.offered <- driverID
	case notify.KindOfferWithdrawn:
		n.withdrawn <- driverID
	}
	return nil
}

func (n *recordingNotifier) NotifyCustomer(ctx context.Context, customerID int64, ev notify.Event) error {
	if ev.Kind == notify.KindNoDriver {
		n.noDriver <- customerID
	}
	return nil
}

func waitFor(t *testing.T, ch chan int64, want int64) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for driver %d", want)
	}
}

func requireQuiet(t *testing.T, ch chan int64, d time.Duration) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected event for driver %d", got)
	case <-time.After(d):
	}
}

func candidates(ids ...int64) []domain.Driver {
	out := make([]domain.Driver, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Driver{ID: id})
	}
	return out
}

func newCounters() (offers, exhausted prometheus.Counter) {
	offers = prometheus.NewCounter(prometheus.CounterOpts{Name: "test_offers_total"})
	exhausted = prometheus.NewCounter(prometheus.CounterOpts{Name: "test_exhausted_total"})
	return offers, exhausted
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcaster_CascadeOnTimeout(t *testing.T) {
	t.Parallel()

	n := newRecordingNotifier()
	offers, exhausted := newCounters()
	b := dispatch.NewBroadcaster(n, 30*time.Millisecond, offers, exhausted, logx.Nop())
	defer b.Close()

	b.Start(1, 500, candidates(10, 20, 30))

	// Driver 10 stays silent, the offer moves on to driver 20.
	waitFor(t, n.offered, 10)
	waitFor(t, n.offered, 20)

	// Driver 20 accepts; driver 30 must never see an offer.
	b.Settle(1)
	eventually(t, func() bool { return !b.Active(1) })
	requireQuiet(t, n.offered, 100*time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(offers))
	require.Equal(t, float64(0), testutil.ToFloat64(exhausted))
}

func TestBroadcaster_Exhaustion(t *testing.T) {
	t.Parallel()

	n := newRecordingNotifier()
	offers, exhausted := newCounters()
	b := dispatch.NewBroadcaster(n, 20*time.Millisecond, offers, exhausted, logx.Nop())
	defer b.Close()

	b.Start(2, 500, candidates(10, 20))

	waitFor(t, n.offered, 10)
	waitFor(t, n.offered, 20)

	// Once every candidate stayed silent the customer hears about it.
	waitFor(t, n.noDriver, 500)
	eventually(t, func() bool { return !b.Active(2) })

	require.Equal(t, float64(1), testutil.ToFloat64(exhausted))
}

func TestBroadcaster_AbortWithdrawsCurrentOffer(t *testing.T) {
	t.Parallel()

	n := newRecordingNotifier()
	offers, exhausted := newCounters()
	b := dispatch.NewBroadcaster(n, time.Minute, offers, exhausted, logx.Nop())
	defer b.Close()

	b.Start(3, 500, candidates(10, 20))
	waitFor(t, n.offered, 10)

	b.Abort(3)
	waitFor(t, n.withdrawn, 10)
	eventually(t, func() bool { return !b.Active(3) })
	requireQuiet(t, n.offered, 50*time.Millisecond)
}

func TestBroadcaster_NoCandidates(t *testing.T) {
	t.Parallel()

	n := newRecordingNotifier()
	offers, exhausted := newCounters()
	b := dispatch.NewBroadcaster(n, time.Minute, offers, exhausted, logx.Nop())
	defer b.Close()

	b.Start(4, 500, nil)

	require.False(t, b.Active(4))
	waitFor(t, n.noDriver, 500)
	require.Equal(t, float64(1), testutil.ToFloat64(exhausted))
	require.Equal(t, float64(0), testutil.ToFloat64(offers))
}

func TestBroadcaster_AdvanceOnLostAccept(t *testing.T) {
	t.Parallel()

	n := newRecordingNotifier()
	offers, exhausted := newCounters()
	b := dispatch.NewBroadcaster(n, time.Minute, offers, exhausted, logx.Nop())
	defer b.Close()

	b.Start(6, 500, candidates(10, 20))
	waitFor(t, n.offered, 10)

	// Driver 10's accept lost the assignment race elsewhere; the next
	// candidate gets the offer without waiting out the timer.
	b.Advance(6, 10)
	waitFor(t, n.offered, 20)
	require.True(t, b.Active(6))
	b.Settle(6)
}

func TestBroadcaster_AdvanceIgnoresNonActiveDriver(t *testing.T) {
	t.Parallel()

	n := newRecordingNotifier()
	offers, exhausted := newCounters()
	b := dispatch.NewBroadcaster(n, time.Minute, offers, exhausted, logx.Nop())
	defer b.Close()

	b.Start(7, 500, candidates(10, 20))
	waitFor(t, n.offered, 10)

	// A late accept from a driver who was never offered must not move the
	// cascade.
	b.Advance(7, 999)
	requireQuiet(t, n.offered, 50*time.Millisecond)
	require.True(t, b.Active(7))
	b.Settle(7)
}

func TestBroadcaster_StartIsIdempotentPerDelivery(t *testing.T) {
	t.Parallel()

	n := newRecordingNotifier()
	offers, exhausted := newCounters()
	b := dispatch.NewBroadcaster(n, time.Minute, offers, exhausted, logx.Nop())
	defer b.Close()

	b.Start(5, 500, candidates(10))
	waitFor(t, n.offered, 10)
	b.Start(5, 500, candidates(20))

	requireQuiet(t, n.offered, 50*time.Millisecond)
	require.True(t, b.Active(5))
	b.Settle(5)
}

func TestBroadcaster_SettleUnknownDeliveryIsNoop(t *testing.T) {
	t.Parallel()

	n := newRecordingNotifier()
	offers, exhausted := newCounters()
	b := dispatch.NewBroadcaster(n, time.Minute, offers, exhausted, logx.Nop())
	defer b.Close()

	b.Settle(99)
	b.Abort(99)
}
