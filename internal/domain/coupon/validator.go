package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
)

// Validator validates a coupon code against a cart subtotal and returns the
// applicable discount.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal money.Cents) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupon rules from a
// Repository and checking eligibility against the cart subtotal.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the rule for the given code (trimmed, case-insensitive),
// checks temporal validity, usage limits, and the minimum order amount, and
// increments the usage counter on success.
//
// The minimum order amount is enforced even though the legacy storefront
// declared it in data without ever checking it.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal money.Cents) (*Discount, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrNotFound
	}

	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrExpired
	}

	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return nil, ErrUsageLimitReached
	}

	if subtotal < rule.MinOrder {
		return nil, ErrMinOrderNotMet
	}

	if err := v.repo.IncrementUses(ctx, rule.Code); err != nil {
		return nil, errors.Wrap(err, "increment coupon uses")
	}

	return &Discount{
		Code:        rule.Code,
		Value:       rule.Value,
		MinOrder:    rule.MinOrder,
		Description: rule.Description,
	}, nil
}
