package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pricing"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/tracking"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// PaymentMethod selects how the customer pays.
type PaymentMethod string

const (
	PaymentPix  PaymentMethod = "pix"
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentPix || m == PaymentCard || m == PaymentCash
}

// CardType is the sub-selection for card payments.
type CardType string

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"
)

// Payment holds the chosen method and its method-specific sub-state.
// Switching methods resets the sub-state of the previous one.
type Payment struct {
	Method PaymentMethod `json:"method"`
	// CardType is set only when Method is card.
	CardType CardType `json:"card_type,omitempty"`
	// NeedsChange and ChangeFor are set only when Method is cash.
	NeedsChange bool        `json:"needs_change,omitempty"`
	ChangeFor   money.Cents `json:"change_for,omitempty"`
}

// Address is the delivery destination. Absent for pickup orders.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city"`
	Reference    string `json:"reference,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

// Item is a priced order line frozen at checkout time.
type Item struct {
	ProductID  string      `json:"product_id"`
	Name       string      `json:"name"`
	UnitPrice  money.Cents `json:"unit_price"`
	AddonIDs   []string    `json:"addon_ids,omitempty"`
	AddonTotal money.Cents `json:"addon_total"`
	Quantity   int         `json:"quantity"`
	Note       string      `json:"note,omitempty"`
}

// Order is the immutable snapshot produced at submit, plus its live tracking
// status.
type Order struct {
	ID           string
	UserID       string
	Items        []Item
	Fulfillment  pricing.Fulfillment
	Address      *Address
	Payment      Payment
	CouponCode   string
	CashbackUsed money.Cents
	Quote        pricing.Quote
	Status       tracking.Status
	CreatedAt    time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
	// UpdateStatus persists a forward transition. Implementations must refuse
	// regressions so the stored status stays monotonic even under races.
	UpdateStatus(ctx context.Context, id string, status tracking.Status) error
}
