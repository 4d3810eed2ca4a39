package http

import (
	"net/http"
)

type availability struct {
	Available bool `json:"available"`
}

// EmailAvailable handles GET /api/v1/users/email-available?email=&exclude=
func (h *Handlers) EmailAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := q.Get("email")
	if !requireField(w, email, "email") {
		return
	}
	ok, err := h.Users.EmailAvailable(r.Context(), email, q.Get("exclude"))
	respond(w, http.StatusOK, availability{Available: ok}, err, "")
}
