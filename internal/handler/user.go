package handler

import (
	"net/http"
	"strings"
)

// getUserByPhone keeps the three outcomes distinct: a found account, a
// genuine not-found, and a backend outage (503). The storefront treats only
// the not-found case as a new-customer signup.
func (h *Handler) getUserByPhone(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		badRequest(w, "phone query parameter is required")
		return
	}

	u, err := h.users.GetByPhone(r.Context(), phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userToView(u))
}

type createUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.Phone) == "" {
		badRequest(w, "first_name and phone are required")
		return
	}

	u, err := h.users.Create(r.Context(), req.FirstName, req.LastName, req.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userToView(u))
}
