// Package pix implements the Pix payment sub-flow: a charge with a countdown
// to expiry, an externally delivered confirmation, and an automatic redirect
// to order tracking shortly after payment.
package pix

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/pkg/clock"
)

// DefaultTTL is how long a charge stays payable before expiring.
const DefaultTTL = 600 * time.Second

// DefaultRedirectDelay is how long a paid charge lingers on the confirmation
// screen before routing to tracking.
const DefaultRedirectDelay = 2500 * time.Millisecond

// State is the lifecycle state of a charge.
type State string

const (
	StateWaiting   State = "waiting"
	StateExpired   State = "expired"
	StatePaid      State = "paid"
	StateAbandoned State = "abandoned"
)

var (
	// ErrAbandoned is returned when operating on an abandoned charge.
	ErrAbandoned = errors.New("pix charge abandoned")
	// ErrAlreadyPaid is returned when abandoning a paid charge.
	ErrAlreadyPaid = errors.New("pix charge already paid")
	// ErrNotFound is returned for unknown charge IDs.
	ErrNotFound = errors.New("pix charge not found")
)

// Charge is a single Pix payment attempt tied to an order.
//
// Race policy: a confirmation that arrives after the countdown expired still
// wins, as long as the customer has not abandoned the flow. Only Abandon
// closes the door on confirmation.
type Charge struct {
	ID      string
	OrderID string
	Amount  money.Cents
	BRCode  string

	mu         sync.Mutex
	state      State
	deadline   time.Time
	clk        clock.Clock
	expiry     clock.Timer
	redirect   clock.Timer
	redirDelay time.Duration
	onPaid     func(orderID string)
	redirDone  bool
}

// ChargeConfig configures charge creation.
type ChargeConfig struct {
	TTL           time.Duration
	RedirectDelay time.Duration
	Clock         clock.Clock
	// OnPaid fires once, RedirectDelay after confirmation, to route the
	// customer to tracking.
	OnPaid func(orderID string)
}

// NewCharge creates a waiting charge and starts its countdown.
func NewCharge(orderID string, amount money.Cents, merchant, city string, cfg ChargeConfig) *Charge {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = DefaultRedirectDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}

	id := uuid.New().String()
	c := &Charge{
		ID:         id,
		OrderID:    orderID,
		Amount:     amount,
		BRCode:     buildBRCode(id, amount, merchant, city),
		state:      StateWaiting,
		clk:        cfg.Clock,
		redirDelay: cfg.RedirectDelay,
		onPaid:     cfg.OnPaid,
	}
	c.deadline = cfg.Clock.Now().Add(cfg.TTL)
	c.expiry = cfg.Clock.AfterFunc(cfg.TTL, c.expire)
	return c
}

// State returns the current state and the remaining payable time (zero once
// the countdown has run out).
func (c *Charge) State() (State, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.deadline.Sub(c.clk.Now())
	if remaining < 0 || c.state != StateWaiting {
		remaining = 0
	}
	return c.state, remaining
}

func (c *Charge) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateWaiting {
		c.state = StateExpired
	}
}

// Confirm marks the charge paid and schedules the redirect to tracking.
// Confirming an expired-but-not-abandoned charge succeeds (payment already
// left the customer's bank); confirming twice is idempotent.
func (c *Charge) Confirm() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateAbandoned:
		return ErrAbandoned
	case StatePaid:
		return nil
	}

	c.state = StatePaid
	if c.expiry != nil {
		c.expiry.Stop()
	}
	if c.onPaid != nil && !c.redirDone {
		c.redirDone = true
		orderID := c.OrderID
		fn := c.onPaid
		c.redirect = c.clk.AfterFunc(c.redirDelay, func() { fn(orderID) })
	}
	return nil
}

// Abandon closes the flow: the customer gave up or restarted checkout.
// A paid charge cannot be abandoned.
func (c *Charge) Abandon() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePaid:
		return ErrAlreadyPaid
	case StateAbandoned:
		return nil
	}

	c.state = StateAbandoned
	c.stopTimersLocked()
	return nil
}

// Close cancels all pending timers without changing state. Call on teardown
// so no callback fires against disposed state.
func (c *Charge) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimersLocked()
}

func (c *Charge) stopTimersLocked() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	if c.redirect != nil {
		c.redirect.Stop()
		c.redirect = nil
	}
}

// buildBRCode assembles a static EMV BR Code payload (QRCPS-MPM) for the
// charge. The CRC is computed over the full payload per the EMV QRCPS standard.
func buildBRCode(txid string, amount money.Cents, merchant, city string) string {
	key := strings.ReplaceAll(txid, "-", "")

	var b strings.Builder
	writeTLV(&b, "00", "01")                     // payload format indicator
	writeTLV(&b, "26", merchantAccountInfo(key)) // merchant account information
	writeTLV(&b, "52", "0000")                   // merchant category code
	writeTLV(&b, "53", "986")                    // currency: BRL
	writeTLV(&b, "54", amount.String())
	writeTLV(&b, "58", "BR")
	writeTLV(&b, "59", truncate(strings.ToUpper(merchant), 25))
	writeTLV(&b, "60", truncate(strings.ToUpper(city), 15))
	writeTLV(&b, "62", tlv("05", "***"))
	b.WriteString("6304")
	payload := b.String()
	return payload + fmt.Sprintf("%04X", crc16CCITT([]byte(payload)))
}

func merchantAccountInfo(key string) string {
	return tlv("00", "br.gov.bcb.pix") + tlv("01", key)
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func writeTLV(b *strings.Builder, id, value string) {
	b.WriteString(tlv(id, value))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// crc16CCITT computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF) as
// required by the BR Code field 63.
func crc16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, d := range data {
		crc ^= uint16(d) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
