package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]productView, len(products))
	for i, p := range products {
		views[i] = h.productToView(p)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.productToView(*p))
}

func (h *Handler) listAddons(w http.ResponseWriter, r *http.Request) {
	addons, err := h.products.ListAddons(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]addonView, len(addons))
	for i, a := range addons {
		views[i] = addonView{ID: a.ID, Name: a.Name, Price: a.Price.Float64()}
	}
	writeJSON(w, http.StatusOK, views)
}
