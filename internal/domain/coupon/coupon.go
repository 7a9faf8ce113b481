package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
)

var (
	// ErrNotFound is returned when no active coupon matches the code.
	ErrNotFound = errors.New("coupon not found")
	// ErrMinOrderNotMet is returned when the cart subtotal is below the
	// coupon's minimum order amount.
	ErrMinOrderNotMet = errors.New("minimum order amount not met")
	// ErrExpired is returned when a coupon is outside its valid time window.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// IsInvalid reports whether err is any of the coupon rejection reasons, as
// opposed to an infrastructure failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMinOrderNotMet) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrUsageLimitReached)
}

// Rule defines a coupon's flat discount and eligibility constraints.
// Codes are unique and matched case-insensitively.
type Rule struct {
	Code        string
	Value       money.Cents
	MinOrder    money.Cents
	Description string
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	MaxUses     int
	Uses        int
}

// Discount is a successfully applied coupon. MinOrder is carried along so the
// holder can re-validate eligibility when the cart shrinks after application.
type Discount struct {
	Code        string
	Value       money.Cents
	MinOrder    money.Cents
	Description string
}

// Repository provides lookup and mutation of coupon rules.
type Repository interface {
	// FindByCode matches the code case-insensitively against active coupons.
	// Returns ErrNotFound when no active coupon matches.
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}
