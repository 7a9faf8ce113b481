// Package pricing computes order quotes: subtotal, delivery fee, coupon and
// cashback discounts, and the final total. All functions are pure.
package pricing

import (
	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
)

// DefaultDeliveryFee is the flat courier fee charged for delivery orders.
const DefaultDeliveryFee = money.Cents(500)

// Fulfillment selects between courier delivery and counter pickup.
type Fulfillment string

const (
	FulfillmentDelivery Fulfillment = "delivery"
	FulfillmentPickup   Fulfillment = "pickup"
)

// Valid reports whether f is a known fulfillment type.
func (f Fulfillment) Valid() bool {
	return f == FulfillmentDelivery || f == FulfillmentPickup
}

// Line is a cart line with resolved prices, ready for quoting.
type Line struct {
	UnitPrice   money.Cents
	AddonPrices []money.Cents
	Quantity    int
}

// Input carries everything needed to compute a quote.
type Input struct {
	Lines       []Line
	Fulfillment Fulfillment
	DeliveryFee money.Cents

	// CouponValue is the flat discount of the applied coupon, zero when none.
	CouponValue money.Cents

	// UseCashback applies the available balance against the payable amount.
	UseCashback     bool
	CashbackBalance money.Cents
}

// Quote is the priced breakdown of an order.
type Quote struct {
	Subtotal         money.Cents
	DeliveryFee      money.Cents
	CouponDiscount   money.Cents
	CashbackDiscount money.Cents
	Total            money.Cents
}

// Subtotal returns the sum over lines of (unit price + add-on prices) * quantity.
// Quantities below 1 are treated as 1.
func Subtotal(lines []Line) money.Cents {
	var sum money.Cents
	for _, l := range lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		unit := l.UnitPrice
		for _, a := range l.AddonPrices {
			unit += a
		}
		sum += unit * money.Cents(qty)
	}
	return sum
}

// Compute produces the quote for the given input.
//
// The coupon discount is capped at subtotal + delivery fee; the cashback
// discount at min(balance, remaining payable). The total is floored at zero,
// so Quote.Total is never negative.
func Compute(in Input) Quote {
	subtotal := Subtotal(in.Lines)

	var fee money.Cents
	if in.Fulfillment == FulfillmentDelivery {
		fee = in.DeliveryFee
	}

	payable := subtotal + fee

	couponDiscount := money.Min(money.FloorZero(in.CouponValue), payable)
	payable -= couponDiscount

	var cashbackDiscount money.Cents
	if in.UseCashback {
		cashbackDiscount = money.Min(money.FloorZero(in.CashbackBalance), payable)
		payable -= cashbackDiscount
	}

	return Quote{
		Subtotal:         subtotal,
		DeliveryFee:      fee,
		CouponDiscount:   couponDiscount,
		CashbackDiscount: cashbackDiscount,
		Total:            money.FloorZero(payable),
	}
}
