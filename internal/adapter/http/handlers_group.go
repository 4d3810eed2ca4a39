package http

import (
	"net/http"
)

// GroupSummary handles GET /api/v1/groups/{id}/summary?month=YYYY-MM
func (h *Handlers) GroupSummary(w http.ResponseWriter, r *http.Request) {
	month, err := queryMonth(r, h.now())
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	m, err := h.Summaries.Month(r.Context(), urlParam(r, "id"), month)
	respond(w, http.StatusOK, m, err, "group not found")
}

// CategoryNameAvailable handles GET /api/v1/groups/{id}/category-names/available?name=&exclude=
func (h *Handlers) CategoryNameAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if !requireField(w, name, "name") {
		return
	}
	ok, err := h.Categories.NameAvailable(r.Context(), urlParam(r, "id"), name, q.Get("exclude"))
	respond(w, http.StatusOK, availability{Available: ok}, err, "group not found")
}
