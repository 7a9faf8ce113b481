// Package tracking implements the linear, forward-only order status
// progression shown on the tracking screen.
package tracking

import (
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/uiliambrandao/nammos-checkout/pkg/clock"
)

// Status is a point in the order lifecycle. Statuses are strictly ordered and
// an order's status never regresses.
type Status string

const (
	StatusReceived       Status = "received"
	StatusAccepted       Status = "accepted"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
)

// Sequence lists all statuses in progression order.
var Sequence = []Status{
	StatusReceived,
	StatusAccepted,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
}

// ErrUnknownStatus is returned when parsing a string that is not a status.
var ErrUnknownStatus = errors.New("unknown tracking status")

// Parse converts a stored string into a Status.
func Parse(s string) (Status, error) {
	for _, st := range Sequence {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
}

// Index returns the position of s in the progression, or -1.
func (s Status) Index() int {
	for i, st := range Sequence {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether s is the final status.
func (s Status) Terminal() bool {
	return s == StatusDelivered
}

// Next returns the following status and true, or s and false at the end.
func (s Status) Next() (Status, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Sequence) {
		return s, false
	}
	return Sequence[i+1], true
}

// Tracker holds the live tracking state for a single order. Advances are
// serialized by a mutex, so each transition is atomic from the caller's view.
type Tracker struct {
	mu      sync.Mutex
	status  Status
	updated time.Time
	clk     clock.Clock
	auto    clock.Timer
	stopped bool
}

// NewTracker starts a tracker at the given status (StatusReceived for fresh
// orders; orders reloaded from storage resume where they left off).
func NewTracker(start Status, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.System()
	}
	return &Tracker{status: start, updated: clk.Now(), clk: clk}
}

// Status returns the current status and the time of the last transition.
func (t *Tracker) Status() (Status, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.updated
}

// Advance moves exactly one step forward and reports whether the status
// changed. Calling Advance at the terminal status is a no-op.
func (t *Tracker) Advance() (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.advanceLocked()
}

func (t *Tracker) advanceLocked() (Status, bool) {
	next, ok := t.status.Next()
	if !ok {
		return t.status, false
	}
	t.status = next
	t.updated = t.clk.Now()
	return t.status, true
}

// AutoAdvance schedules a step every interval until the status right before
// delivered is reached; the final hop to delivered is left to a real signal.
// Used by the demo driver in place of kitchen/courier events. Calling it
// again replaces the previous schedule.
func (t *Tracker) AutoAdvance(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.auto != nil {
		t.auto.Stop()
	}
	t.auto = t.clk.AfterFunc(interval, func() { t.autoStep(interval) })
}

func (t *Tracker) autoStep(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.status.Index() >= len(Sequence)-2 {
		t.auto = nil
		return
	}
	t.advanceLocked()
	t.auto = t.clk.AfterFunc(interval, func() { t.autoStep(interval) })
}

// Stop cancels any scheduled auto-advance. The tracker keeps answering
// Status/Advance calls; it only stops firing timers. Safe to call twice.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.auto != nil {
		t.auto.Stop()
		t.auto = nil
	}
}
