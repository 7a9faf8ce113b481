package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToView(o))
}

func (h *Handler) getTracking(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.Track(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingToView(view))
}

func (h *Handler) advanceTracking(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingToView(view))
}
