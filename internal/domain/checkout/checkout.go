// Package checkout implements the checkout state machine: a mutable session
// holding the cart, fulfillment, address, payment selection, coupon and
// cashback state, with a guarded, idempotent submit as the single commit
// point.
package checkout

import (
	"github.com/go-faster/errors"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pricing"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrEmptyCart blocks submitting a session with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrMissingAddress blocks submitting a delivery order without an address.
	ErrMissingAddress = errors.New("delivery address required")
	// ErrInvalidFulfillment is returned for unknown fulfillment types.
	ErrInvalidFulfillment = errors.New("invalid fulfillment type")
	// ErrInvalidPayment is returned for malformed payment selections.
	ErrInvalidPayment = errors.New("invalid payment selection")
	// ErrSessionClosed is returned when mutating a session that already
	// produced an order.
	ErrSessionClosed = errors.New("checkout session already submitted")
	// ErrSubmitInFlight is returned when mutating a session while a submit is
	// being committed.
	ErrSubmitInFlight = errors.New("submit in progress")
)

// SubmissionState is the top-level submit progression of a session.
type SubmissionState string

const (
	SubmissionReady      SubmissionState = "ready"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionPix        SubmissionState = "redirect_to_pix_payment"
	SubmissionTracking   SubmissionState = "redirect_to_tracking"
	SubmissionFailed     SubmissionState = "submission_failed"
)

// CouponState tracks the coupon sub-machine of a session.
type CouponState string

const (
	CouponNone     CouponState = "none"
	CouponPending  CouponState = "pending"
	CouponApplied  CouponState = "applied"
	CouponRejected CouponState = "rejected"
)

// CouponReason explains a rejection.
type CouponReason string

const (
	ReasonNone              CouponReason = ""
	ReasonCouponNotFound    CouponReason = "coupon_not_found"
	ReasonMinOrderNotMet    CouponReason = "min_order_not_met"
	ReasonCouponExpired     CouponReason = "coupon_expired"
	ReasonUsageLimitReached CouponReason = "usage_limit_reached"
)

// LineView is a resolved cart line for presentation.
type LineView struct {
	ID         string
	ProductID  string
	Name       string
	UnitPrice  money.Cents
	AddonIDs   []string
	AddonNames []string
	AddonTotal money.Cents
	Quantity   int
	Note       string
	LineTotal  money.Cents
}

// State is an immutable snapshot of a session, safe to render concurrently
// with further mutations.
type State struct {
	ID              string
	UserID          string
	Lines           []LineView
	Fulfillment     pricing.Fulfillment
	Address         *order.Address
	Payment         order.Payment
	CouponState     CouponState
	CouponCode      string
	CouponReason    CouponReason
	UseCashback     bool
	CashbackBalance money.Cents
	Quote           pricing.Quote
	Submission      SubmissionState
	OrderID         string
}

// SubmitResult is returned by Submit. For an in-flight or completed submit it
// reflects the existing outcome rather than starting a new one.
type SubmitResult struct {
	Submission SubmissionState
	OrderID    string
	Total      money.Cents
}
