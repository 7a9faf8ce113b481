package handler

import (
	"strings"
	"time"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/cashback"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/checkout"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pix"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pricing"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/product"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/user"
)

// Amounts are rendered as JSON numbers in display units (reais).

type productView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Image    string  `json:"image,omitempty"`
}

type addonView struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type quoteView struct {
	Subtotal         float64 `json:"subtotal"`
	DeliveryFee      float64 `json:"delivery_fee"`
	CouponDiscount   float64 `json:"coupon_discount"`
	CashbackDiscount float64 `json:"cashback_discount"`
	Total            float64 `json:"total"`
}

type lineView struct {
	ID         string   `json:"id"`
	ProductID  string   `json:"product_id"`
	Name       string   `json:"name"`
	UnitPrice  float64  `json:"unit_price"`
	AddonIDs   []string `json:"addon_ids,omitempty"`
	AddonNames []string `json:"addon_names,omitempty"`
	AddonTotal float64  `json:"addon_total"`
	Quantity   int      `json:"quantity"`
	Note       string   `json:"note,omitempty"`
	LineTotal  float64  `json:"line_total"`
}

type addressView struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city"`
	Reference    string `json:"reference,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

type paymentView struct {
	Method      string  `json:"method"`
	CardType    string  `json:"card_type,omitempty"`
	NeedsChange bool    `json:"needs_change,omitempty"`
	ChangeFor   float64 `json:"change_for,omitempty"`
}

type couponView struct {
	State  string `json:"state"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type cashbackToggleView struct {
	Enabled bool    `json:"enabled"`
	Balance float64 `json:"balance"`
}

type checkoutView struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id,omitempty"`
	Lines       []lineView         `json:"lines"`
	Fulfillment string             `json:"fulfillment"`
	Address     *addressView       `json:"address,omitempty"`
	Payment     paymentView        `json:"payment"`
	Coupon      couponView         `json:"coupon"`
	Cashback    cashbackToggleView `json:"cashback"`
	Quote       quoteView          `json:"quote"`
	Submission  string             `json:"submission"`
	OrderID     string             `json:"order_id,omitempty"`
}

type pixView struct {
	ChargeID         string  `json:"charge_id"`
	OrderID          string  `json:"order_id"`
	State            string  `json:"state"`
	Amount           float64 `json:"amount"`
	BRCode           string  `json:"br_code"`
	RemainingSeconds int     `json:"remaining_seconds"`
}

type submitView struct {
	Submission string   `json:"submission"`
	OrderID    string   `json:"order_id,omitempty"`
	Total      float64  `json:"total"`
	Pix        *pixView `json:"pix,omitempty"`
}

type orderItemView struct {
	ProductID  string   `json:"product_id"`
	Name       string   `json:"name"`
	UnitPrice  float64  `json:"unit_price"`
	AddonIDs   []string `json:"addon_ids,omitempty"`
	AddonTotal float64  `json:"addon_total"`
	Quantity   int      `json:"quantity"`
	Note       string   `json:"note,omitempty"`
}

type orderView struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id,omitempty"`
	Items        []orderItemView `json:"items"`
	Fulfillment  string          `json:"fulfillment"`
	Address      *addressView    `json:"address,omitempty"`
	Payment      paymentView     `json:"payment"`
	CouponCode   string          `json:"coupon_code,omitempty"`
	CashbackUsed float64         `json:"cashback_used"`
	Quote        quoteView       `json:"quote"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type trackingViewJSON struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Sequence  []string  `json:"sequence"`
	Delivered bool      `json:"delivered"`
}

type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type cashbackEntryView struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type cashbackView struct {
	UserID  string              `json:"user_id"`
	Balance float64             `json:"balance"`
	Entries []cashbackEntryView `json:"entries"`
}

func (h *Handler) productToView(p product.Product) productView {
	return productView{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.Float64(),
		Category: p.Category,
		Image:    h.imageURL(p.Image),
	}
}

// imageURL prepends the configured base URL to relative image paths.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func quoteToView(q pricing.Quote) quoteView {
	return quoteView{
		Subtotal:         q.Subtotal.Float64(),
		DeliveryFee:      q.DeliveryFee.Float64(),
		CouponDiscount:   q.CouponDiscount.Float64(),
		CashbackDiscount: q.CashbackDiscount.Float64(),
		Total:            q.Total.Float64(),
	}
}

func addressToView(a *order.Address) *addressView {
	if a == nil {
		return nil
	}
	return &addressView{
		Street:       a.Street,
		Number:       a.Number,
		Neighborhood: a.Neighborhood,
		City:         a.City,
		Reference:    a.Reference,
		PostalCode:   a.PostalCode,
	}
}

func paymentToView(p order.Payment) paymentView {
	return paymentView{
		Method:      string(p.Method),
		CardType:    string(p.CardType),
		NeedsChange: p.NeedsChange,
		ChangeFor:   p.ChangeFor.Float64(),
	}
}

func stateToView(st checkout.State) checkoutView {
	lines := make([]lineView, len(st.Lines))
	for i, l := range st.Lines {
		lines[i] = lineView{
			ID:         l.ID,
			ProductID:  l.ProductID,
			Name:       l.Name,
			UnitPrice:  l.UnitPrice.Float64(),
			AddonIDs:   l.AddonIDs,
			AddonNames: l.AddonNames,
			AddonTotal: l.AddonTotal.Float64(),
			Quantity:   l.Quantity,
			Note:       l.Note,
			LineTotal:  l.LineTotal.Float64(),
		}
	}

	return checkoutView{
		ID:          st.ID,
		UserID:      st.UserID,
		Lines:       lines,
		Fulfillment: string(st.Fulfillment),
		Address:     addressToView(st.Address),
		Payment:     paymentToView(st.Payment),
		Coupon: couponView{
			State:  string(st.CouponState),
			Code:   st.CouponCode,
			Reason: string(st.CouponReason),
		},
		Cashback: cashbackToggleView{
			Enabled: st.UseCashback,
			Balance: st.CashbackBalance.Float64(),
		},
		Quote:      quoteToView(st.Quote),
		Submission: string(st.Submission),
		OrderID:    st.OrderID,
	}
}

func chargeToView(c *pix.Charge) pixView {
	state, remaining := c.State()
	return pixView{
		ChargeID:         c.ID,
		OrderID:          c.OrderID,
		State:            string(state),
		Amount:           c.Amount.Float64(),
		BRCode:           c.BRCode,
		RemainingSeconds: int(remaining.Seconds()),
	}
}

func orderToView(o *order.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{
			ProductID:  it.ProductID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice.Float64(),
			AddonIDs:   it.AddonIDs,
			AddonTotal: it.AddonTotal.Float64(),
			Quantity:   it.Quantity,
			Note:       it.Note,
		}
	}

	return orderView{
		ID:           o.ID,
		UserID:       o.UserID,
		Items:        items,
		Fulfillment:  string(o.Fulfillment),
		Address:      addressToView(o.Address),
		Payment:      paymentToView(o.Payment),
		CouponCode:   o.CouponCode,
		CashbackUsed: o.CashbackUsed.Float64(),
		Quote:        quoteToView(o.Quote),
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
	}
}

func trackingToView(v order.TrackingView) trackingViewJSON {
	seq := make([]string, len(v.Sequence))
	for i, s := range v.Sequence {
		seq[i] = string(s)
	}
	return trackingViewJSON{
		OrderID:   v.OrderID,
		Status:    string(v.Status),
		UpdatedAt: v.UpdatedAt,
		Sequence:  seq,
		Delivered: v.Delivered,
	}
}

func userToView(u *user.User) userView {
	return userView{ID: u.ID, Name: u.Name, Phone: u.Phone, CreatedAt: u.CreatedAt}
}

func entryToView(e cashback.Entry) cashbackEntryView {
	return cashbackEntryView{
		ID:          e.ID,
		Type:        string(e.Type),
		Amount:      e.Amount.Float64(),
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}
