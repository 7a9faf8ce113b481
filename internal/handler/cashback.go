package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const cashbackEntryLimit = 50

func (h *Handler) getCashback(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	balance, err := h.cashback.Balance(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.cashback.Entries(r.Context(), userID, cashbackEntryLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]cashbackEntryView, len(entries))
	for i, e := range entries {
		views[i] = entryToView(e)
	}
	writeJSON(w, http.StatusOK, cashbackView{
		UserID:  userID,
		Balance: balance.Float64(),
		Entries: views,
	})
}
