package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Users
		r.Get("/users", handleList(h.Users.List))
		r.Post("/users", handleCreate(h.bodyLimit(), nil, h.Users.Create, "user not found"))
		r.Get("/users/email-available", h.EmailAvailable)
		r.Get("/users/{id}", handleGet(h.Users.Get, "user not found"))
		r.Put("/users/{id}", handleUpdate(h.bodyLimit(), h.Users.Update, "user not found"))
		r.Delete("/users/{id}", handleDelete(h.Users.Delete, "user not found"))

		// Groups (nested under users)
		r.Get("/users/{id}/groups", handleListByParent(h.Groups.List, "user not found"))
		r.Post("/users/{id}/groups", handleCreate(h.bodyLimit(), bindUserID, h.Groups.Create, "user not found"))

		// Groups (direct access)
		r.Get("/groups/{id}", handleGet(h.Groups.Get, "group not found"))
		r.Put("/groups/{id}", handleUpdate(h.bodyLimit(), h.Groups.Update, "group not found"))
		r.Delete("/groups/{id}", handleDelete(h.Groups.Delete, "group not found"))
		r.Get("/groups/{id}/balance", handleGet(h.Summaries.GroupBalance, "group not found"))
		r.Get("/groups/{id}/summary", h.GroupSummary)

		// Categories (nested under groups)
		r.Get("/groups/{id}/categories", handleListByParent(h.Categories.List, "group not found"))
		r.Post("/groups/{id}/categories", handleCreate(h.bodyLimit(), bindGroupID, h.Categories.Create, "group not found"))
		r.Get("/groups/{id}/category-names/available", h.CategoryNameAvailable)

		// Categories (direct access)
		r.Get("/categories/{id}", handleGet(h.Categories.Get, "category not found"))
		r.Put("/categories/{id}", handleUpdate(h.bodyLimit(), h.Categories.Update, "category not found"))
		r.Delete("/categories/{id}", handleDelete(h.Categories.Delete, "category not found"))
		r.Get("/categories/{id}/count", handleGetValue("count", h.Categories.CountEntries, "category not found"))
		r.Get("/categories/{id}/total", handleGet(h.Summaries.CategoryTotal, "category not found"))

		// Entries (nested under categories)
		r.Get("/categories/{id}/entries", h.ListCategoryEntries)
		r.Post("/categories/{id}/entries", handleCreate(h.bodyLimit(), bindCategoryID, h.Entries.Create, "category not found"))

		// Entries (direct access)
		r.Get("/entries/{id}", handleGet(h.Entries.Get, "entry not found"))
		r.Put("/entries/{id}", handleUpdate(h.bodyLimit(), h.Entries.Update, "entry not found"))
		r.Delete("/entries/{id}", handleDelete(h.Entries.Delete, "entry not found"))
		r.Get("/entries/{id}/total", handleGetValue("total", h.Summaries.EntryTotal, "entry not found"))

		// Cache administration
		r.Get("/admin/cache", h.CacheStats)
		r.Post("/admin/cache/sweep", h.SweepCache)
		r.Delete("/admin/cache", h.ClearCache)
	})
}
