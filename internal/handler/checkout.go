package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/checkout"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pricing"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/tracking"
)

type newItemRequest struct {
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	AddonIDs  []string `json:"addon_ids"`
	Note      string   `json:"note"`
}

type createCheckoutRequest struct {
	UserID      string           `json:"user_id"`
	Fulfillment string           `json:"fulfillment"`
	Items       []newItemRequest `json:"items"`
}

func (h *Handler) createCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Fulfillment == "" {
		req.Fulfillment = string(pricing.FulfillmentDelivery)
	}

	st, err := h.checkout.Create(r.Context(), req.UserID, pricing.Fulfillment(req.Fulfillment))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sessionID := st.ID
	for _, item := range req.Items {
		st, err = h.checkout.AddItem(r.Context(), sessionID, checkout.NewItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			AddonIDs:  item.AddonIDs,
			Note:      item.Note,
		})
		if err != nil {
			h.checkout.Drop(sessionID)
			h.writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, stateToView(st))
}

func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	st, err := h.checkout.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

func (h *Handler) dropCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkout.Drop(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req newItemRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	st, err := h.checkout.AddItem(r.Context(), chi.URLParam(r, "id"), checkout.NewItem{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		AddonIDs:  req.AddonIDs,
		Note:      req.Note,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

type updateItemRequest struct {
	Quantity *int      `json:"quantity"`
	AddonIDs *[]string `json:"addon_ids"`
	Note     *string   `json:"note"`
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	st, err := h.checkout.UpdateItem(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "lineID"),
		checkout.ItemPatch{Quantity: req.Quantity, AddonIDs: req.AddonIDs, Note: req.Note},
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	st, err := h.checkout.RemoveItem(chi.URLParam(r, "id"), chi.URLParam(r, "lineID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

type addressRequest struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	Reference    string `json:"reference"`
	PostalCode   string `json:"postal_code"`
}

func (h *Handler) setAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Street == "" {
		badRequest(w, "street is required")
		return
	}

	st, err := h.checkout.SetAddress(chi.URLParam(r, "id"), order.Address{
		Street:       req.Street,
		Number:       req.Number,
		Neighborhood: req.Neighborhood,
		City:         req.City,
		Reference:    req.Reference,
		PostalCode:   req.PostalCode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

type fulfillmentRequest struct {
	Fulfillment string `json:"fulfillment"`
}

func (h *Handler) setFulfillment(w http.ResponseWriter, r *http.Request) {
	var req fulfillmentRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	st, err := h.checkout.SetFulfillment(chi.URLParam(r, "id"), pricing.Fulfillment(req.Fulfillment))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

type paymentRequest struct {
	Method      string  `json:"method"`
	CardType    string  `json:"card_type"`
	NeedsChange bool    `json:"needs_change"`
	ChangeFor   float64 `json:"change_for"`
}

func (h *Handler) setPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	st, err := h.checkout.SetPayment(chi.URLParam(r, "id"), order.Payment{
		Method:      order.PaymentMethod(req.Method),
		CardType:    order.CardType(req.CardType),
		NeedsChange: req.NeedsChange,
		ChangeFor:   money.FromDecimal(decimal.NewFromFloat(req.ChangeFor)),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

type couponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	st, err := h.checkout.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	st, err := h.checkout.RemoveCoupon(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

func (h *Handler) toggleCashback(w http.ResponseWriter, r *http.Request) {
	st, err := h.checkout.ToggleCashback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateToView(st))
}

// submit commits the session. On a pix order the response carries the live
// charge for QR rendering; a repeated submit returns the same charge.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	res, err := h.checkout.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view := submitView{
		Submission: string(res.Submission),
		OrderID:    res.OrderID,
		Total:      res.Total.Float64(),
	}

	switch res.Submission {
	case checkout.SubmissionPix:
		charge := h.pix.Ensure(res.OrderID, res.Total)
		pv := chargeToView(charge)
		view.Pix = &pv
	case checkout.SubmissionTracking:
		h.orders.StartTracking(res.OrderID, tracking.StatusReceived)
	}

	writeJSON(w, http.StatusOK, view)
}
