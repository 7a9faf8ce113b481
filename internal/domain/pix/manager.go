package pix

import (
	"sync"
	"time"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/pkg/clock"
)

// Manager is the in-memory registry of live charges.
type Manager struct {
	merchant string
	city     string
	ttl      time.Duration
	delay    time.Duration
	clk      clock.Clock
	onPaid   func(orderID string)

	mu      sync.RWMutex
	charges map[string]*Charge
	byOrder map[string]*Charge
}

// ManagerConfig configures the charge registry.
type ManagerConfig struct {
	Merchant      string
	City          string
	TTL           time.Duration
	RedirectDelay time.Duration
	Clock         clock.Clock
	OnPaid        func(orderID string)
}

// NewManager creates an empty registry.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		merchant: cfg.Merchant,
		city:     cfg.City,
		ttl:      cfg.TTL,
		delay:    cfg.RedirectDelay,
		clk:      cfg.Clock,
		onPaid:   cfg.OnPaid,
		charges:  make(map[string]*Charge),
		byOrder:  make(map[string]*Charge),
	}
}

// Ensure returns the live charge for an order, creating one when the order
// has none yet or its previous charge was abandoned. A repeated submit
// therefore lands on the same charge instead of opening a second countdown.
func (m *Manager) Ensure(orderID string, amount money.Cents) *Charge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.byOrder[orderID]; ok {
		if state, _ := c.State(); state != StateAbandoned {
			return c
		}
	}

	c := NewCharge(orderID, amount, m.merchant, m.city, ChargeConfig{
		TTL:           m.ttl,
		RedirectDelay: m.delay,
		Clock:         m.clk,
		OnPaid:        m.onPaid,
	})
	m.charges[c.ID] = c
	m.byOrder[orderID] = c
	return c
}

// Get returns the charge with the given ID or ErrNotFound.
func (m *Manager) Get(id string) (*Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.charges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Close cancels every live charge's timers. Called on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.charges {
		c.Close()
	}
}
