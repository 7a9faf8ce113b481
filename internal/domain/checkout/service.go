package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/cart"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/cashback"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/coupon"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pricing"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/product"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/tracking"
)

// Config holds non-dependency settings for the checkout service.
type Config struct {
	// DeliveryFee is the flat courier fee applied to delivery orders.
	DeliveryFee money.Cents
}

// Service owns the live checkout sessions and orchestrates their state
// machine against the catalog, coupon, cashback, and order collaborators.
type Service struct {
	products product.Repository
	coupons  coupon.Validator
	cashback cashback.Repository
	orders   order.Repository

	deliveryFee money.Cents
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a checkout Service with the required collaborators.
func NewService(
	products product.Repository,
	coupons coupon.Validator,
	cashback cashback.Repository,
	orders order.Repository,
	cfg Config,
) *Service {
	fee := cfg.DeliveryFee
	if fee == 0 {
		fee = pricing.DefaultDeliveryFee
	}
	return &Service{
		products:    products,
		coupons:     coupons,
		cashback:    cashback,
		orders:      orders,
		deliveryFee: fee,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// NewItem is the input for adding a cart line.
type NewItem struct {
	ProductID string
	Quantity  int
	AddonIDs  []string
	Note      string
}

// ItemPatch is a partial cart line update; nil fields are left unchanged.
type ItemPatch struct {
	Quantity *int
	AddonIDs *[]string
	Note     *string
}

// Create opens a new session. The cashback balance is loaded here and
// refreshed on every toggle; a failing balance lookup degrades to zero but is
// logged so outages are not mistaken for empty balances.
func (s *Service) Create(ctx context.Context, userID string, fulfillment pricing.Fulfillment) (State, error) {
	if !fulfillment.Valid() {
		return State{}, ErrInvalidFulfillment
	}

	balance := s.loadBalance(ctx, userID)

	sess := newSession(uuid.New().String(), userID, fulfillment, s.deliveryFee, balance)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.repriceLocked()
	return sess.snapshotLocked(), nil
}

// Get returns the current snapshot of a session.
func (s *Service) Get(sessionID string) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// Drop discards a session, e.g. when the customer navigates away. In-flight
// async work is invalidated by the generation bump.
func (s *Service) Drop(sessionID string) {
	s.mu.Lock()
	sess := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if sess != nil {
		sess.mu.Lock()
		sess.bumpLocked()
		sess.mu.Unlock()
	}
}

// AddItem resolves the product and add-ons and appends a cart line.
func (s *Service) AddItem(ctx context.Context, sessionID string, item NewItem) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	p, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return State{}, err
	}
	addons, err := s.resolveAddons(ctx, item.AddonIDs)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mutableLocked(); err != nil {
		return State{}, err
	}

	line := cart.Line{
		ID:        uuid.New().String(),
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		AddonIDs:  append([]string(nil), item.AddonIDs...),
		Note:      item.Note,
	}
	sess.cart.Add(line)
	sess.resolved[line.ID] = resolvedLine{line: line, product: *p, addons: addons}
	sess.bumpLocked()
	sess.repriceLocked()
	return sess.snapshotLocked(), nil
}

// UpdateItem applies a partial update to a cart line.
func (s *Service) UpdateItem(ctx context.Context, sessionID, lineID string, patch ItemPatch) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	var addons []product.Addon
	if patch.AddonIDs != nil {
		if addons, err = s.resolveAddons(ctx, *patch.AddonIDs); err != nil {
			return State{}, err
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mutableLocked(); err != nil {
		return State{}, err
	}

	r, ok := sess.resolved[lineID]
	if !ok {
		return State{}, cart.ErrLineNotFound
	}

	if patch.Quantity != nil {
		if err := sess.cart.SetQuantity(lineID, *patch.Quantity); err != nil {
			return State{}, err
		}
	}
	if patch.AddonIDs != nil {
		if err := sess.cart.SetAddons(lineID, *patch.AddonIDs); err != nil {
			return State{}, err
		}
		r.addons = addons
		sess.resolved[lineID] = r
	}
	if patch.Note != nil {
		if err := sess.cart.SetNote(lineID, *patch.Note); err != nil {
			return State{}, err
		}
	}

	sess.bumpLocked()
	sess.repriceLocked()
	return sess.snapshotLocked(), nil
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(sessionID, lineID string) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mutableLocked(); err != nil {
		return State{}, err
	}
	if err := sess.cart.Remove(lineID); err != nil {
		return State{}, err
	}
	delete(sess.resolved, lineID)
	sess.bumpLocked()
	sess.repriceLocked()
	return sess.snapshotLocked(), nil
}

// SetAddress stores the delivery address.
func (s *Service) SetAddress(sessionID string, addr order.Address) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mutableLocked(); err != nil {
		return State{}, err
	}
	sess.address = &addr
	sess.bumpLocked()
	return sess.snapshotLocked(), nil
}

// SetFulfillment switches between delivery and pickup and reprices.
func (s *Service) SetFulfillment(sessionID string, f pricing.Fulfillment) (State, error) {
	if !f.Valid() {
		return State{}, ErrInvalidFulfillment
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mutableLocked(); err != nil {
		return State{}, err
	}
	sess.fulfillment = f
	sess.bumpLocked()
	sess.repriceLocked()
	return sess.snapshotLocked(), nil
}

// SetPayment replaces the payment method, resetting sub-state that belongs to
// the method being left.
func (s *Service) SetPayment(sessionID string, p order.Payment) (State, error) {
	if !p.Method.Valid() {
		return State{}, ErrInvalidPayment
	}

	switch p.Method {
	case order.PaymentCard:
		if p.CardType == "" {
			p.CardType = order.CardCredit
		}
		if p.CardType != order.CardCredit && p.CardType != order.CardDebit {
			return State{}, ErrInvalidPayment
		}
		p.NeedsChange = false
		p.ChangeFor = 0
	case order.PaymentCash:
		p.CardType = ""
		if !p.NeedsChange {
			p.ChangeFor = 0
		}
		if p.ChangeFor < 0 {
			return State{}, ErrInvalidPayment
		}
	default: // pix
		p.CardType = ""
		p.NeedsChange = false
		p.ChangeFor = 0
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mutableLocked(); err != nil {
		return State{}, err
	}
	sess.payment = p
	sess.bumpLocked()
	return sess.snapshotLocked(), nil
}

// ApplyCoupon validates the code against the current subtotal. The lookup is
// asynchronous with respect to the session: the result only lands if nothing
// mutated the session in the meantime, so a stale discount can never apply to
// a changed cart.
func (s *Service) ApplyCoupon(ctx context.Context, sessionID, code string) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))

	sess.mu.Lock()
	if err := sess.mutableLocked(); err != nil {
		sess.mu.Unlock()
		return State{}, err
	}
	// Re-applying the applied code is a no-op.
	if sess.couponState == CouponApplied && sess.couponCode == normalized {
		st := sess.snapshotLocked()
		sess.mu.Unlock()
		return st, nil
	}
	sess.couponState = CouponPending
	sess.couponCode = normalized
	sess.couponReason = ReasonNone
	sess.bumpLocked()
	gen := sess.gen
	subtotal := pricing.Subtotal(sess.pricingLinesLocked())
	sess.mu.Unlock()

	discount, lookupErr := s.coupons.Validate(ctx, normalized, subtotal)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// The session moved on while we were looking up: discard the result.
	if sess.gen != gen {
		return sess.snapshotLocked(), nil
	}

	switch {
	case lookupErr == nil:
		sess.coupon = discount
		sess.couponState = CouponApplied
		sess.couponReason = ReasonNone
	case coupon.IsInvalid(lookupErr):
		sess.coupon = nil
		sess.couponState = CouponRejected
		sess.couponReason = rejectionReason(lookupErr)
	default:
		sess.coupon = nil
		sess.couponState = CouponNone
		sess.couponCode = ""
		sess.repriceLocked()
		return sess.snapshotLocked(), errors.Wrap(lookupErr, "validate coupon")
	}

	sess.repriceLocked()
	return sess.snapshotLocked(), nil
}

// RemoveCoupon clears any applied or rejected coupon.
func (s *Service) RemoveCoupon(sessionID string) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mutableLocked(); err != nil {
		return State{}, err
	}
	sess.coupon = nil
	sess.couponState = CouponNone
	sess.couponCode = ""
	sess.couponReason = ReasonNone
	sess.bumpLocked()
	sess.repriceLocked()
	return sess.snapshotLocked(), nil
}

// ToggleCashback flips cashback usage. Toggling with a zero balance is a
// no-op. The balance is refreshed from the ledger on every toggle.
func (s *Service) ToggleCashback(ctx context.Context, sessionID string) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	balance := s.loadBalance(ctx, sess.userID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.mutableLocked(); err != nil {
		return State{}, err
	}

	sess.cashbackBalance = balance
	if balance == 0 && !sess.useCashback {
		return sess.snapshotLocked(), nil
	}
	sess.useCashback = !sess.useCashback
	sess.bumpLocked()
	sess.repriceLocked()
	return sess.snapshotLocked(), nil
}

// Submit is the single commit point: it validates guards, debits used
// cashback, persists the order, and routes to the Pix flow or straight to
// tracking.
// A second Submit while one is in flight is ignored; a Submit after success
// returns the existing outcome.
func (s *Service) Submit(ctx context.Context, sessionID string) (SubmitResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return SubmitResult{}, err
	}

	sess.mu.Lock()
	switch sess.submission {
	case SubmissionSubmitting:
		res := SubmitResult{Submission: SubmissionSubmitting}
		sess.mu.Unlock()
		return res, nil
	case SubmissionPix, SubmissionTracking:
		res := SubmitResult{
			Submission: sess.submission,
			OrderID:    sess.orderID,
			Total:      sess.quote.Total,
		}
		sess.mu.Unlock()
		return res, nil
	}

	if sess.cart.Empty() {
		sess.mu.Unlock()
		return SubmitResult{}, ErrEmptyCart
	}
	if sess.fulfillment == pricing.FulfillmentDelivery && sess.address == nil {
		sess.mu.Unlock()
		return SubmitResult{}, ErrMissingAddress
	}

	sess.submission = SubmissionSubmitting
	// A failed attempt left its snapshot behind; reuse it so a retry commits
	// the same order ID instead of minting a second order.
	o := sess.pending
	sess.bumpLocked() // invalidate any in-flight coupon lookup
	if o == nil {
		o = s.buildOrderLocked(sess)
	}
	sess.pending = o
	sess.mu.Unlock()

	if err := s.commit(ctx, o); err != nil {
		sess.mu.Lock()
		sess.submission = SubmissionFailed
		sess.mu.Unlock()
		return SubmitResult{Submission: SubmissionFailed}, err
	}

	next := SubmissionTracking
	if o.Payment.Method == order.PaymentPix {
		next = SubmissionPix
	}

	sess.mu.Lock()
	sess.submission = next
	sess.orderID = o.ID
	res := SubmitResult{Submission: next, OrderID: o.ID, Total: o.Quote.Total}
	sess.mu.Unlock()
	return res, nil
}

// commit debits used cashback before persisting the order, so a failed debit
// leaves nothing behind. If persisting fails after a successful debit the
// amount is credited back; a failing refund is logged for reconciliation.
func (s *Service) commit(ctx context.Context, o *order.Order) error {
	debited := o.CashbackUsed > 0 && o.UserID != ""
	if debited {
		err := s.cashback.Debit(ctx, o.UserID, o.CashbackUsed, "used on order "+o.ID)
		if err != nil {
			return errors.Wrap(err, "debit cashback")
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if debited {
			refundErr := s.cashback.Credit(ctx, o.UserID, o.CashbackUsed, "refund for failed order "+o.ID)
			if refundErr != nil {
				zctx.From(ctx).Error("Cashback refund after failed order creation failed",
					zap.String("user_id", o.UserID),
					zap.String("order_id", o.ID),
					zap.Error(refundErr))
			}
		}
		return errors.Wrap(err, "create order")
	}
	return nil
}

// buildOrderLocked freezes the session into an order snapshot.
func (s *Service) buildOrderLocked(sess *Session) *order.Order {
	lines := sess.cart.Lines()
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		r, ok := sess.resolved[l.ID]
		if !ok {
			continue
		}
		var addonTotal money.Cents
		for _, a := range r.addons {
			addonTotal += a.Price
		}
		items = append(items, order.Item{
			ProductID:  l.ProductID,
			Name:       r.product.Name,
			UnitPrice:  r.product.Price,
			AddonIDs:   append([]string(nil), l.AddonIDs...),
			AddonTotal: addonTotal,
			Quantity:   l.Quantity,
			Note:       l.Note,
		})
	}

	var addr *order.Address
	if sess.address != nil {
		a := *sess.address
		addr = &a
	}

	couponCode := ""
	if sess.coupon != nil {
		couponCode = sess.coupon.Code
	}

	return &order.Order{
		ID:           uuid.New().String(),
		UserID:       sess.userID,
		Items:        items,
		Fulfillment:  sess.fulfillment,
		Address:      addr,
		Payment:      sess.payment,
		CouponCode:   couponCode,
		CashbackUsed: sess.quote.CashbackDiscount,
		Quote:        sess.quote,
		Status:       tracking.StatusReceived,
		CreatedAt:    s.now(),
	}
}

func (s *Service) session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) resolveAddons(ctx context.Context, ids []string) ([]product.Addon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	addons, err := s.products.GetAddonsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(addons) != len(ids) {
		return nil, product.ErrAddonNotFound
	}
	return addons, nil
}

// loadBalance degrades to zero on a failing lookup but logs the degradation,
// so an outage is never silently indistinguishable from an empty balance.
func (s *Service) loadBalance(ctx context.Context, userID string) money.Cents {
	if userID == "" {
		return 0
	}
	balance, err := s.cashback.Balance(ctx, userID)
	if err != nil {
		zctx.From(ctx).Warn("Cashback balance lookup failed, assuming zero",
			zap.String("user_id", userID), zap.Error(err))
		return 0
	}
	return balance
}

func rejectionReason(err error) CouponReason {
	switch {
	case errors.Is(err, coupon.ErrMinOrderNotMet):
		return ReasonMinOrderNotMet
	case errors.Is(err, coupon.ErrExpired):
		return ReasonCouponExpired
	case errors.Is(err, coupon.ErrUsageLimitReached):
		return ReasonUsageLimitReached
	default:
		return ReasonCouponNotFound
	}
}
