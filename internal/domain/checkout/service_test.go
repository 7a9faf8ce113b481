package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/cashback"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/coupon"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pricing"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/product"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/tracking"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]product.Product
	addons map[string]product.Addon
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) ListAddons(_ context.Context) ([]product.Addon, error) {
	out := make([]product.Addon, 0, len(m.addons))
	for _, a := range m.addons {
		out = append(out, a)
	}
	return out, nil
}

func (m *mockProductRepo) GetAddonsByIDs(_ context.Context, ids []string) ([]product.Addon, error) {
	out := make([]product.Addon, 0, len(ids))
	for _, id := range ids {
		if a, ok := m.addons[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockValidator struct {
	mu       sync.Mutex
	discount *coupon.Discount
	err      error
	// hook runs during Validate, before returning, to simulate concurrent
	// session mutations while a lookup is in flight.
	hook func()
}

func (m *mockValidator) Validate(_ context.Context, _ string, _ money.Cents) (*coupon.Discount, error) {
	m.mu.Lock()
	hook := m.hook
	d, err := m.discount, m.err
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return d, err
}

type mockCashbackRepo struct {
	balance  money.Cents
	err      error
	debitErr error
	debits   []money.Cents
	credits  []money.Cents
}

func (m *mockCashbackRepo) Balance(_ context.Context, _ string) (money.Cents, error) {
	return m.balance, m.err
}

func (m *mockCashbackRepo) Entries(_ context.Context, _ string, _ int) ([]cashback.Entry, error) {
	return nil, nil
}

func (m *mockCashbackRepo) Debit(_ context.Context, _ string, amount money.Cents, _ string) error {
	if m.debitErr != nil {
		return m.debitErr
	}
	m.debits = append(m.debits, amount)
	return nil
}

func (m *mockCashbackRepo) Credit(_ context.Context, _ string, amount money.Cents, _ string) error {
	m.credits = append(m.credits, amount)
	return nil
}

type mockOrderRepo struct {
	created   []*order.Order
	attempted []string
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.attempted = append(m.attempted, o.ID)
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) ListRecent(_ context.Context, _ int) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ string, _ tracking.Status) error {
	return nil
}

// --- Helpers ---

func catalog() *mockProductRepo {
	return &mockProductRepo{
		byID: map[string]product.Product{
			"classic": {ID: "classic", Name: "Nammos Classic", Price: 3290, Category: "burgers"},
			"fries":   {ID: "fries", Name: "Fritas", Price: 1490, Category: "sides"},
			"soda":    {ID: "soda", Name: "Coca-Cola Lata", Price: 600, Category: "drinks"},
		},
		addons: map[string]product.Addon{
			"bacon":   {ID: "bacon", Name: "Bacon Crocante", Price: 400},
			"cheddar": {ID: "cheddar", Name: "Cheddar Extra", Price: 300},
		},
	}
}

type fixture struct {
	svc       *Service
	validator *mockValidator
	cashback  *mockCashbackRepo
	orders    *mockOrderRepo
}

func newFixture() *fixture {
	f := &fixture{
		validator: &mockValidator{},
		cashback:  &mockCashbackRepo{},
		orders:    &mockOrderRepo{},
	}
	f.svc = NewService(catalog(), f.validator, f.cashback, f.orders, Config{})
	return f
}

// fillCart builds the reference order: classic + bacon + cheddar, fries, 2 sodas.
func fillCart(t *testing.T, svc *Service, sessionID string) State {
	t.Helper()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, sessionID, NewItem{ProductID: "classic", Quantity: 1, AddonIDs: []string{"bacon", "cheddar"}, Note: "no pickles"})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, sessionID, NewItem{ProductID: "fries", Quantity: 1})
	require.NoError(t, err)
	st, err := svc.AddItem(ctx, sessionID, NewItem{ProductID: "soda", Quantity: 2})
	require.NoError(t, err)
	return st
}

// --- Tests ---

func TestService_CreateAndPriceCart(t *testing.T) {
	f := newFixture()
	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentDelivery)
	require.NoError(t, err)
	assert.Equal(t, SubmissionReady, st.Submission)
	assert.Equal(t, money.Cents(500), st.Quote.DeliveryFee)

	st = fillCart(t, f.svc, st.ID)
	assert.Equal(t, money.Cents(6680), st.Quote.Subtotal)
	assert.Equal(t, money.Cents(7180), st.Quote.Total)
	require.Len(t, st.Lines, 3)
	assert.Equal(t, money.Cents(3990), st.Lines[0].LineTotal)
	assert.Equal(t, []string{"Bacon Crocante", "Cheddar Extra"}, st.Lines[0].AddonNames)
}

func TestService_UnknownProduct(t *testing.T) {
	f := newFixture()
	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)

	_, err = f.svc.AddItem(context.Background(), st.ID, NewItem{ProductID: "sushi", Quantity: 1})
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestService_ApplyCoupon(t *testing.T) {
	f := newFixture()
	f.validator.discount = &coupon.Discount{Code: "NAMMOS10", Value: 800, MinOrder: 3000}

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentDelivery)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	st, err = f.svc.ApplyCoupon(context.Background(), st.ID, "  nammos10 ")
	require.NoError(t, err)
	assert.Equal(t, CouponApplied, st.CouponState)
	assert.Equal(t, "NAMMOS10", st.CouponCode)
	assert.Equal(t, money.Cents(800), st.Quote.CouponDiscount)
	assert.Equal(t, money.Cents(6380), st.Quote.Total)
}

func TestService_ApplyCoupon_NotFoundLeavesPricingUntouched(t *testing.T) {
	f := newFixture()
	f.validator.err = coupon.ErrNotFound

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentDelivery)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	st, err = f.svc.ApplyCoupon(context.Background(), st.ID, "INVALID")
	require.NoError(t, err)
	assert.Equal(t, CouponRejected, st.CouponState)
	assert.Equal(t, ReasonCouponNotFound, st.CouponReason)
	assert.Equal(t, money.Cents(0), st.Quote.CouponDiscount)
	assert.Equal(t, money.Cents(7180), st.Quote.Total)
}

func TestService_ApplyCoupon_Idempotent(t *testing.T) {
	f := newFixture()
	f.validator.discount = &coupon.Discount{Code: "NAMMOS10", Value: 800}

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentDelivery)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	st1, err := f.svc.ApplyCoupon(context.Background(), st.ID, "NAMMOS10")
	require.NoError(t, err)
	st2, err := f.svc.ApplyCoupon(context.Background(), st.ID, "NAMMOS10")
	require.NoError(t, err)

	assert.Equal(t, st1.Quote, st2.Quote, "re-applying the same code changes nothing")
	assert.Equal(t, money.Cents(800), st2.Quote.CouponDiscount, "discount applied at most once")
}

func TestService_ApplyCoupon_StaleResultDiscarded(t *testing.T) {
	f := newFixture()

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentDelivery)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	// While the lookup is in flight the cart changes, so the discount that
	// was computed against the old subtotal must not land.
	f.validator.discount = &coupon.Discount{Code: "NAMMOS10", Value: 800}
	f.validator.hook = func() {
		_, err := f.svc.AddItem(context.Background(), st.ID, NewItem{ProductID: "soda", Quantity: 1})
		require.NoError(t, err)
	}

	got, err := f.svc.ApplyCoupon(context.Background(), st.ID, "NAMMOS10")
	require.NoError(t, err)
	assert.NotEqual(t, CouponApplied, got.CouponState)
	assert.Equal(t, money.Cents(0), got.Quote.CouponDiscount)
}

func TestService_CouponDroppedWhenCartShrinksBelowMinOrder(t *testing.T) {
	f := newFixture()
	f.validator.discount = &coupon.Discount{Code: "WELCOME", Value: 1500, MinOrder: 4000}

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentDelivery)
	require.NoError(t, err)
	st = fillCart(t, f.svc, st.ID)

	applied, err := f.svc.ApplyCoupon(context.Background(), st.ID, "WELCOME")
	require.NoError(t, err)
	require.Equal(t, CouponApplied, applied.CouponState)

	// Remove the burger line: subtotal falls to 26.90, below the 40.00 floor.
	got, err := f.svc.RemoveItem(st.ID, st.Lines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, CouponRejected, got.CouponState)
	assert.Equal(t, ReasonMinOrderNotMet, got.CouponReason)
	assert.Equal(t, money.Cents(0), got.Quote.CouponDiscount)
}

func TestService_ToggleCashback(t *testing.T) {
	f := newFixture()
	f.cashback.balance = 1850
	f.validator.discount = &coupon.Discount{Code: "NAMMOS10", Value: 800}

	st, err := f.svc.Create(context.Background(), "user-1", pricing.FulfillmentDelivery)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	st, err = f.svc.ApplyCoupon(context.Background(), st.ID, "NAMMOS10")
	require.NoError(t, err)
	require.Equal(t, money.Cents(6380), st.Quote.Total)

	st, err = f.svc.ToggleCashback(context.Background(), st.ID)
	require.NoError(t, err)
	assert.True(t, st.UseCashback)
	assert.Equal(t, money.Cents(1850), st.Quote.CashbackDiscount)
	assert.Equal(t, money.Cents(4530), st.Quote.Total)

	st, err = f.svc.ToggleCashback(context.Background(), st.ID)
	require.NoError(t, err)
	assert.False(t, st.UseCashback)
	assert.Equal(t, money.Cents(6380), st.Quote.Total)
}

func TestService_ToggleCashback_ZeroBalanceIsNoop(t *testing.T) {
	f := newFixture()

	st, err := f.svc.Create(context.Background(), "user-1", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	st, err = f.svc.ToggleCashback(context.Background(), st.ID)
	require.NoError(t, err)
	assert.False(t, st.UseCashback)
}

func TestService_SetPayment_ResetsSubState(t *testing.T) {
	f := newFixture()
	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)

	st, err = f.svc.SetPayment(st.ID, order.Payment{
		Method: order.PaymentCash, NeedsChange: true, ChangeFor: 10000,
	})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(10000), st.Payment.ChangeFor)

	// Leaving cash clears the change amount.
	st, err = f.svc.SetPayment(st.ID, order.Payment{Method: order.PaymentCard, CardType: order.CardDebit})
	require.NoError(t, err)
	assert.False(t, st.Payment.NeedsChange)
	assert.Equal(t, money.Cents(0), st.Payment.ChangeFor)
	assert.Equal(t, order.CardDebit, st.Payment.CardType)

	// Back to pix clears card sub-selection.
	st, err = f.svc.SetPayment(st.ID, order.Payment{Method: order.PaymentPix})
	require.NoError(t, err)
	assert.Empty(t, st.Payment.CardType)
}

func TestService_Submit_Guards(t *testing.T) {
	f := newFixture()

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentDelivery)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), st.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)

	fillCart(t, f.svc, st.ID)
	_, err = f.svc.Submit(context.Background(), st.ID)
	assert.ErrorIs(t, err, ErrMissingAddress)

	_, err = f.svc.SetAddress(st.ID, order.Address{Street: "Rua das Flores", Number: "123", City: "Sao Paulo"})
	require.NoError(t, err)

	res, err := f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, SubmissionPix, res.Submission, "pix is the default method")
	assert.NotEmpty(t, res.OrderID)
	require.Len(t, f.orders.created, 1)
}

func TestService_Submit_PickupNeedsNoAddress(t *testing.T) {
	f := newFixture()

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	_, err = f.svc.SetPayment(st.ID, order.Payment{Method: order.PaymentCard})
	require.NoError(t, err)

	res, err := f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, SubmissionTracking, res.Submission, "non-pix methods route straight to tracking")
}

func TestService_Submit_IdempotentAfterSuccess(t *testing.T) {
	f := newFixture()

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	res1, err := f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)
	res2, err := f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)

	assert.Equal(t, res1.OrderID, res2.OrderID)
	assert.Len(t, f.orders.created, 1, "a second submit must not create another order")
}

func TestService_Submit_FailureIsRetryable(t *testing.T) {
	f := newFixture()
	f.orders.err = errors.New("database down")

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	res, err := f.svc.Submit(context.Background(), st.ID)
	require.Error(t, err)
	assert.Equal(t, SubmissionFailed, res.Submission)

	f.orders.err = nil
	res, err = f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, SubmissionPix, res.Submission)
}

func TestService_Submit_RetryReusesOrderSnapshot(t *testing.T) {
	f := newFixture()
	f.orders.err = errors.New("database down")

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	_, err = f.svc.Submit(context.Background(), st.ID)
	require.Error(t, err)
	require.Len(t, f.orders.attempted, 1)
	firstID := f.orders.attempted[0]

	f.orders.err = nil
	res, err := f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, firstID, res.OrderID, "retry must commit the same order, not mint a second one")
	require.Len(t, f.orders.created, 1)
	assert.Equal(t, firstID, f.orders.created[0].ID)
}

func TestService_Submit_MutationAfterFailureRebuildsOrder(t *testing.T) {
	f := newFixture()
	f.orders.err = errors.New("database down")

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	_, err = f.svc.Submit(context.Background(), st.ID)
	require.Error(t, err)
	require.Len(t, f.orders.attempted, 1)

	// The cart changed after the failure: the stale snapshot must not commit.
	_, err = f.svc.AddItem(context.Background(), st.ID, NewItem{ProductID: "soda", Quantity: 1})
	require.NoError(t, err)

	f.orders.err = nil
	res, err := f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)
	assert.NotEqual(t, f.orders.attempted[0], res.OrderID)
	require.Len(t, f.orders.created, 1)
	assert.Len(t, f.orders.created[0].Items, 4)
}

func TestService_Submit_DebitFailureLeavesNoOrder(t *testing.T) {
	f := newFixture()
	f.cashback.balance = 1850
	f.cashback.debitErr = errors.New("ledger down")

	st, err := f.svc.Create(context.Background(), "user-1", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)
	_, err = f.svc.ToggleCashback(context.Background(), st.ID)
	require.NoError(t, err)

	res, err := f.svc.Submit(context.Background(), st.ID)
	require.Error(t, err)
	assert.Equal(t, SubmissionFailed, res.Submission)
	assert.Empty(t, f.orders.created, "a failed debit must not leave a persisted order")

	f.cashback.debitErr = nil
	res, err = f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)
	require.Len(t, f.orders.created, 1)
	assert.Equal(t, res.OrderID, f.orders.created[0].ID)
	assert.Equal(t, []money.Cents{1850}, f.cashback.debits)
}

func TestService_Submit_CreateFailureRefundsCashback(t *testing.T) {
	f := newFixture()
	f.cashback.balance = 1850
	f.orders.err = errors.New("database down")

	st, err := f.svc.Create(context.Background(), "user-1", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)
	_, err = f.svc.ToggleCashback(context.Background(), st.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), st.ID)
	require.Error(t, err)
	assert.Equal(t, []money.Cents{1850}, f.cashback.debits)
	assert.Equal(t, []money.Cents{1850}, f.cashback.credits, "the debit must be refunded when the order does not persist")
	assert.Empty(t, f.orders.created)
}

func TestService_Submit_DebitsCashback(t *testing.T) {
	f := newFixture()
	f.cashback.balance = 1850

	st, err := f.svc.Create(context.Background(), "user-1", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	_, err = f.svc.ToggleCashback(context.Background(), st.ID)
	require.NoError(t, err)

	res, err := f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(6680-1850), res.Total)
	require.Len(t, f.cashback.debits, 1)
	assert.Equal(t, money.Cents(1850), f.cashback.debits[0])

	require.Len(t, f.orders.created, 1)
	assert.Equal(t, money.Cents(1850), f.orders.created[0].CashbackUsed)
	assert.Equal(t, tracking.StatusReceived, f.orders.created[0].Status)
}

func TestService_MutationRejectedAfterSubmit(t *testing.T) {
	f := newFixture()

	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)
	fillCart(t, f.svc, st.ID)

	_, err = f.svc.Submit(context.Background(), st.ID)
	require.NoError(t, err)

	_, err = f.svc.AddItem(context.Background(), st.ID, NewItem{ProductID: "soda", Quantity: 1})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestService_Drop(t *testing.T) {
	f := newFixture()
	st, err := f.svc.Create(context.Background(), "", pricing.FulfillmentPickup)
	require.NoError(t, err)

	f.svc.Drop(st.ID)
	_, err = f.svc.Get(st.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
