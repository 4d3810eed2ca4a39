package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Strob0t/Tally/internal/domain/category"
	"github.com/Strob0t/Tally/internal/domain/entry"
	"github.com/Strob0t/Tally/internal/domain/group"
	"github.com/Strob0t/Tally/internal/service"
)

const defaultBodyLimit = 1 << 20 // 1 MB

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the services the HTTP routes call into.
type Handlers struct {
	Users      *service.UserService
	Groups     *service.GroupService
	Categories *service.CategoryService
	Entries    *service.EntryService
	Summaries  *service.SummaryService
	Cache      *service.CacheService

	// Store is pinged by the health check.
	Store Pinger
	// BusConnected, when set, reports the invalidation bus link for the
	// health check.
	BusConnected func() bool
	BodyLimit    int64
	Clock        clockwork.Clock
}

func (h *Handlers) bodyLimit() int64 {
	if h.BodyLimit > 0 {
		return h.BodyLimit
	}
	return defaultBodyLimit
}

func (h *Handlers) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

// bindGroupID sets the parent group of a nested category create.
func bindGroupID(r *http.Request, req *category.CreateRequest) {
	req.GroupID = urlParam(r, "id")
}

// bindCategoryID sets the parent category of a nested entry create.
func bindCategoryID(r *http.Request, req *entry.CreateRequest) {
	req.CategoryID = urlParam(r, "id")
}

// bindUserID sets the owner of a nested group create.
func bindUserID(r *http.Request, req *group.CreateRequest) {
	req.UserID = urlParam(r, "id")
}
