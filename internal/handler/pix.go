package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) getPixCharge(w http.ResponseWriter, r *http.Request) {
	c, err := h.pix.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chargeToView(c))
}

// confirmPixCharge is the ops signal that the payment cleared. Routing to
// tracking happens through the charge's redirect timer, not here.
func (h *Handler) confirmPixCharge(w http.ResponseWriter, r *http.Request) {
	c, err := h.pix.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := c.Confirm(); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chargeToView(c))
}

func (h *Handler) abandonPixCharge(w http.ResponseWriter, r *http.Request) {
	c, err := h.pix.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := c.Abandon(); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chargeToView(c))
}
