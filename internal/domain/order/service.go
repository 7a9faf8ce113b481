package order

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/tracking"
	"github.com/uiliambrandao/nammos-checkout/pkg/clock"
)

// TrackingView is the tracking timeline for one order.
type TrackingView struct {
	OrderID   string
	Status    tracking.Status
	UpdatedAt time.Time
	Sequence  []tracking.Status
	Delivered bool
}

// ServiceConfig tunes the tracking side of the order service.
type ServiceConfig struct {
	Clock clock.Clock
	// AutoAdvance, when non-zero, steps fresh orders forward on a timer up to
	// (but never including) delivered. Used by the demo environment in place
	// of kitchen and courier signals.
	AutoAdvance time.Duration
}

// Service exposes stored orders and owns their live trackers. The tracker is
// the source of truth for a live order's status; the stored row is kept in
// sync through the repository's monotonic update.
type Service struct {
	repo Repository
	clk  clock.Clock
	auto time.Duration

	mu       sync.Mutex
	trackers map[string]*tracking.Tracker
}

// NewService creates an order Service over the given repository.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		repo:     repo,
		clk:      clk,
		auto:     cfg.AutoAdvance,
		trackers: make(map[string]*tracking.Tracker),
	}
}

// Get returns a stored order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRecent returns the newest orders first, up to limit.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Order, error) {
	return s.repo.ListRecent(ctx, limit)
}

// StartTracking opens a live tracker for a freshly submitted order.
func (s *Service) StartTracking(id string, start tracking.Status) {
	t := tracking.NewTracker(start, s.clk)
	if s.auto > 0 {
		t.AutoAdvance(s.auto)
	}

	s.mu.Lock()
	if prev, ok := s.trackers[id]; ok {
		prev.Stop()
	}
	s.trackers[id] = t
	s.mu.Unlock()
}

// Track returns the current timeline for an order. The stored status is
// refreshed when the live tracker has moved ahead of it.
func (s *Service) Track(ctx context.Context, id string) (TrackingView, error) {
	t, err := s.tracker(ctx, id)
	if err != nil {
		return TrackingView{}, err
	}

	status, updated := t.Status()
	s.sync(ctx, id, status)

	return TrackingView{
		OrderID:   id,
		Status:    status,
		UpdatedAt: updated,
		Sequence:  tracking.Sequence,
		Delivered: status.Terminal(),
	}, nil
}

// Advance moves the order exactly one status forward and persists the result.
// Advancing a delivered order is a no-op.
func (s *Service) Advance(ctx context.Context, id string) (TrackingView, error) {
	t, err := s.tracker(ctx, id)
	if err != nil {
		return TrackingView{}, err
	}

	status, changed := t.Advance()
	if changed {
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return TrackingView{}, err
		}
	}

	_, updated := t.Status()
	return TrackingView{
		OrderID:   id,
		Status:    status,
		UpdatedAt: updated,
		Sequence:  tracking.Sequence,
		Delivered: status.Terminal(),
	}, nil
}

// Close stops every live tracker's timers. Called on shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trackers {
		t.Stop()
	}
}

// tracker returns the live tracker for id, restoring one from storage when
// the order is known but has no tracker yet (e.g. after a restart).
func (s *Service) tracker(ctx context.Context, id string) (*tracking.Tracker, error) {
	s.mu.Lock()
	t, ok := s.trackers[id]
	s.mu.Unlock()
	if ok {
		return t, nil
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trackers[id]; ok {
		return t, nil
	}
	t = tracking.NewTracker(o.Status, s.clk)
	s.trackers[id] = t
	return t, nil
}

// sync pushes the live status into storage. The repository refuses
// regressions, so a stale write can never move the row backwards.
func (s *Service) sync(ctx context.Context, id string, status tracking.Status) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		zctx.From(ctx).Warn("Tracking status sync failed",
			zap.String("order_id", id), zap.Error(err))
	}
}
