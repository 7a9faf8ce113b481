// Package cashback models the store-credit balance a customer can spend
// against an order total.
package cashback

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
)

// ErrInsufficientBalance is returned when a debit exceeds the current balance.
var ErrInsufficientBalance = errors.New("insufficient cashback balance")

// EntryType distinguishes ledger credits from debits.
type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// Entry is a single ledger movement. The balance is the sum of credits minus
// debits; it is never allowed to go negative.
type Entry struct {
	ID          string
	UserID      string
	Type        EntryType
	Amount      money.Cents
	Description string
	CreatedAt   time.Time
}

// Repository provides ledger access and balance derivation for a user.
type Repository interface {
	Balance(ctx context.Context, userID string) (money.Cents, error)
	Entries(ctx context.Context, userID string, limit int) ([]Entry, error)
	// Debit records a spend against the balance. Implementations must reject
	// debits that exceed the current balance with ErrInsufficientBalance.
	Debit(ctx context.Context, userID string, amount money.Cents, description string) error
	Credit(ctx context.Context, userID string, amount money.Cents, description string) error
}
