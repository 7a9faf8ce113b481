package checkout

import (
	"sync"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/cart"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/coupon"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pricing"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/product"
)

// resolvedLine pairs a cart line with its priced catalog data.
type resolvedLine struct {
	line    cart.Line
	product product.Product
	addons  []product.Addon
}

// Session is the mutable checkout state for one customer visit. Every
// operation runs to completion under the session mutex, so each state
// transition is atomic from the caller's perspective; slow I/O (coupon
// lookup, order persistence) happens outside the lock and re-validates
// against the generation counter before committing its result.
type Session struct {
	id     string
	userID string

	mu          sync.Mutex
	cart        *cart.Cart
	resolved    map[string]resolvedLine // keyed by line ID
	fulfillment pricing.Fulfillment
	deliveryFee money.Cents
	address     *order.Address
	payment     order.Payment

	couponState  CouponState
	coupon       *coupon.Discount
	couponCode   string
	couponReason CouponReason
	// gen invalidates in-flight async results: it increments on every
	// mutation, and a lookup started at generation g only lands if the
	// session is still at g.
	gen uint64

	useCashback     bool
	cashbackBalance money.Cents

	quote      pricing.Quote
	submission SubmissionState
	orderID    string
	// pending is the frozen order snapshot of a submit attempt. It survives a
	// failed commit so a retry persists the same order ID, and is discarded by
	// the next mutation.
	pending *order.Order
}

func newSession(id, userID string, fulfillment pricing.Fulfillment, deliveryFee money.Cents, balance money.Cents) *Session {
	return &Session{
		id:              id,
		userID:          userID,
		cart:            cart.New(),
		resolved:        make(map[string]resolvedLine),
		fulfillment:     fulfillment,
		deliveryFee:     deliveryFee,
		payment:         order.Payment{Method: order.PaymentPix},
		couponState:     CouponNone,
		cashbackBalance: balance,
		submission:      SubmissionReady,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// mutable reports whether the session still accepts mutations.
func (s *Session) mutableLocked() error {
	switch s.submission {
	case SubmissionSubmitting:
		return ErrSubmitInFlight
	case SubmissionPix, SubmissionTracking:
		return ErrSessionClosed
	}
	return nil
}

// bump invalidates in-flight async results and any frozen order snapshot
// after a mutation.
func (s *Session) bumpLocked() {
	s.gen++
	s.pending = nil
}

// pricingLines converts the resolved cart into pricing input.
func (s *Session) pricingLinesLocked() []pricing.Line {
	lines := s.cart.Lines()
	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		r, ok := s.resolved[l.ID]
		if !ok {
			continue
		}
		addonPrices := make([]money.Cents, len(r.addons))
		for i, a := range r.addons {
			addonPrices[i] = a.Price
		}
		out = append(out, pricing.Line{
			UnitPrice:   r.product.Price,
			AddonPrices: addonPrices,
			Quantity:    l.Quantity,
		})
	}
	return out
}

// reprice recomputes the quote and drops an applied coupon whose minimum
// order is no longer met by the shrunk cart.
func (s *Session) repriceLocked() {
	subtotal := pricing.Subtotal(s.pricingLinesLocked())

	if s.coupon != nil && subtotal < s.coupon.MinOrder {
		s.coupon = nil
		s.couponState = CouponRejected
		s.couponReason = ReasonMinOrderNotMet
	}

	var couponValue money.Cents
	if s.coupon != nil {
		couponValue = s.coupon.Value
	}

	s.quote = pricing.Compute(pricing.Input{
		Lines:           s.pricingLinesLocked(),
		Fulfillment:     s.fulfillment,
		DeliveryFee:     s.deliveryFee,
		CouponValue:     couponValue,
		UseCashback:     s.useCashback,
		CashbackBalance: s.cashbackBalance,
	})
}

// snapshot builds an immutable view of the session.
func (s *Session) snapshotLocked() State {
	lines := s.cart.Lines()
	views := make([]LineView, 0, len(lines))
	for _, l := range lines {
		r, ok := s.resolved[l.ID]
		if !ok {
			continue
		}
		var addonTotal money.Cents
		addonNames := make([]string, len(r.addons))
		for i, a := range r.addons {
			addonTotal += a.Price
			addonNames[i] = a.Name
		}
		views = append(views, LineView{
			ID:         l.ID,
			ProductID:  l.ProductID,
			Name:       r.product.Name,
			UnitPrice:  r.product.Price,
			AddonIDs:   append([]string(nil), l.AddonIDs...),
			AddonNames: addonNames,
			AddonTotal: addonTotal,
			Quantity:   l.Quantity,
			Note:       l.Note,
			LineTotal:  (r.product.Price + addonTotal) * money.Cents(l.Quantity),
		})
	}

	var addr *order.Address
	if s.address != nil {
		a := *s.address
		addr = &a
	}

	return State{
		ID:              s.id,
		UserID:          s.userID,
		Lines:           views,
		Fulfillment:     s.fulfillment,
		Address:         addr,
		Payment:         s.payment,
		CouponState:     s.couponState,
		CouponCode:      s.couponCode,
		CouponReason:    s.couponReason,
		UseCashback:     s.useCashback,
		CashbackBalance: s.cashbackBalance,
		Quote:           s.quote,
		Submission:      s.submission,
		OrderID:         s.orderID,
	}
}
