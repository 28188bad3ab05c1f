package dispatch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"parcel-dispatch/internal/domain"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/notify"
)

// Broadcaster runs the offer cascade for unassigned deliveries. Each
// delivery gets one session goroutine that offers the ranked candidates one
// at a time: a silent driver loses the offer after the timeout and the next
// candidate is tried. The session ends on assignment, customer cancellation
// or candidate exhaustion; an exhausted delivery stays in created and is
// picked up again by the rebroadcast sweeper.
type Broadcaster struct {
	notifier     notify.Dispatcher
	offerTimeout time.Duration
	offers       prometheus.Counter
	exhausted    prometheus.Counter
	logger       logx.Logger

	mu       sync.Mutex
	sessions map[int64]*session
	closed   bool
	wg       sync.WaitGroup
}

// NewBroadcaster - creates a new Broadcaster.
func NewBroadcaster(
	notifier notify.Dispatcher,
	offerTimeout time.Duration,
	offers, exhausted prometheus.Counter,
	logger logx.Logger,
) *Broadcaster {
	if offerTimeout <= 0 {
		offerTimeout = 30 * time.Second
	}
	return &Broadcaster{
		notifier:     notifier,
		offerTimeout: offerTimeout,
		offers:       offers,
		exhausted:    exhausted,
		logger:       logger,
		sessions:     make(map[int64]*session),
	}
}

type eventKind int

const (
	evTimeout eventKind = iota
	evAdvance
	evSettle
	evAbort
)

type sessionEvent struct {
	kind eventKind
	// seq identifies which offer a timeout belongs to; stale timers are
	// ignored.
	seq int
	// driverID identifies whose lost accept an advance belongs to; stale
	// advances are ignored the same way.
	driverID int64
}

type session struct {
	deliveryID int64
	customerID int64
	candidates []domain.Driver
	events     chan sessionEvent
}

// Start launches the offer cascade for a delivery. A second Start for the
// same delivery is a no-op while the first session is alive.
func (b *Broadcaster) Start(deliveryID, customerID int64, candidates []domain.Driver) {
	if len(candidates) == 0 {
		b.exhausted.Inc()
		b.logger.Warn("no candidates to offer",
			logx.String("event", "broadcast_exhausted"),
			logx.Int64("delivery_id", deliveryID),
		)
		b.notifyNoDriver(customerID, deliveryID)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if _, ok := b.sessions[deliveryID]; ok {
		return
	}

	s := &session{
		deliveryID: deliveryID,
		customerID: customerID,
		candidates: candidates,
		events:     make(chan sessionEvent, 4),
	}
	b.sessions[deliveryID] = s
	b.wg.Add(1)
	go b.run(s)
}

// Settle ends the session after a driver got assigned. Safe to call when no
// session is running.
func (b *Broadcaster) Settle(deliveryID int64) {
	b.post(deliveryID, sessionEvent{kind: evSettle})
}

// Advance moves the cascade past a driver whose accept lost the assignment
// race, without waiting out the offer timer. The event is ignored unless the
// named driver still holds the active offer.
func (b *Broadcaster) Advance(deliveryID, driverID int64) {
	b.post(deliveryID, sessionEvent{kind: evAdvance, driverID: driverID})
}

// Abort ends the session without an assignment, withdrawing the outstanding
// offer. Safe to call when no session is running.
func (b *Broadcaster) Abort(deliveryID int64) {
	b.post(deliveryID, sessionEvent{kind: evAbort})
}

// Active reports whether a session is currently offering the delivery.
func (b *Broadcaster) Active(deliveryID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[deliveryID]
	return ok
}

// Close stops accepting new sessions and waits for running ones to wind down.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	for _, s := range b.sessions {
		select {
		case s.events <- sessionEvent{kind: evAbort}:
		default:
		}
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Broadcaster) post(deliveryID int64, ev sessionEvent) {
	b.mu.Lock()
	s, ok := b.sessions[deliveryID]
	b.mu.Unlock()
	if !ok {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (b *Broadcaster) run(s *session) {
	defer b.wg.Done()
	defer func() {
		b.mu.Lock()
		delete(b.sessions, s.deliveryID)
		b.mu.Unlock()
	}()

	idx := 0
	seq := 0
	timer := b.offer(s, idx, seq)
	defer func() { timer.Stop() }()

	for ev := range s.events {
		switch ev.kind {
		case evTimeout:
			if ev.seq != seq {
				continue
			}

		case evAdvance:
			if s.candidates[idx].ID != ev.driverID {
				continue
			}

		case evSettle:
			return

		case evAbort:
			b.withdraw(s.candidates[idx].ID, s.deliveryID)
			return
		}

		timer.Stop()
		idx++
		seq++
		if idx >= len(s.candidates) {
			b.exhausted.Inc()
			b.logger.Warn("broadcast exhausted",
				logx.String("event", "broadcast_exhausted"),
				logx.Int64("delivery_id", s.deliveryID),
				logx.Int("candidates", len(s.candidates)),
			)
			b.notifyNoDriver(s.customerID, s.deliveryID)
			return
		}
		timer = b.offer(s, idx, seq)
	}
}

// offer notifies one candidate and arms the timeout for this offer.
func (b *Broadcaster) offer(s *session, idx, seq int) *time.Timer {
	driver := s.candidates[idx]
	b.offers.Inc()

	ev := notify.Event{
		Kind: notify.KindOffer,
		Payload: map[string]string{
			"delivery_id": strconv.FormatInt(s.deliveryID, 10),
			"expires_in":  b.offerTimeout.String(),
		},
	}
	if err := b.notifier.NotifyDriver(context.Background(), driver.ID, ev); err != nil {
		b.logger.Warn("offer notification failed",
			logx.Int64("delivery_id", s.deliveryID),
			logx.Int64("driver_id", driver.ID),
			logx.Any("err", err),
		)
	}

	b.logger.Info("offer sent",
		logx.String("event", "offer_sent"),
		logx.Int64("delivery_id", s.deliveryID),
		logx.Int64("driver_id", driver.ID),
		logx.Int("position", idx+1),
	)

	return time.AfterFunc(b.offerTimeout, func() {
		select {
		case s.events <- sessionEvent{kind: evTimeout, seq: seq}:
		default:
		}
	})
}

// notifyNoDriver tells the customer the search came up empty. The delivery
// stays in created and the sweeper keeps retrying.
func (b *Broadcaster) notifyNoDriver(customerID, deliveryID int64) {
	ev := notify.Event{
		Kind: notify.KindNoDriver,
		Payload: map[string]string{
			"delivery_id": strconv.FormatInt(deliveryID, 10),
			"message":     "no driver available",
		},
	}
	if err := b.notifier.NotifyCustomer(context.Background(), customerID, ev); err != nil {
		b.logger.Warn("no-driver notification failed",
			logx.Int64("delivery_id", deliveryID),
			logx.Int64("customer_id", customerID),
			logx.Any("err", err),
		)
	}
}

func (b *Broadcaster) withdraw(driverID, deliveryID int64) {
	ev := notify.Event{
		Kind: notify.KindOfferWithdrawn,
		Payload: map[string]string{
			"delivery_id": strconv.FormatInt(deliveryID, 10),
		},
	}
	if err := b.notifier.NotifyDriver(context.Background(), driverID, ev); err != nil {
		b.logger.Warn("withdraw notification failed",
			logx.Int64("delivery_id", deliveryID),
			logx.Int64("driver_id", driverID),
			logx.Any("err", err),
		)
	}
}
