package http

import (
	"net/http"

	"github.com/Strob0t/Tally/internal/domain/entry"
)

// ListCategoryEntries handles GET /api/v1/categories/{id}/entries
//
// The range is given either as month=YYYY-MM or as from/to RFC 3339
// timestamps; from is inclusive and to exclusive. Without either, every
// entry of the category is listed.
func (h *Handlers) ListCategoryEntries(w http.ResponseWriter, r *http.Request) {
	f, err := h.entryFilter(r)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	entries, err := h.Entries.List(r.Context(), f)
	respond(w, http.StatusOK, nonNil(entries), err, "category not found")
}

func (h *Handlers) entryFilter(r *http.Request) (entry.Filter, error) {
	f := entry.Filter{CategoryID: urlParam(r, "id")}
	if r.URL.Query().Get("month") != "" {
		month, err := queryMonth(r, h.now())
		if err != nil {
			return f, err
		}
		f.From, f.To = entry.MonthRange(month)
		return f, nil
	}

	var err error
	if f.From, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}
