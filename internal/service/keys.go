package service

import (
	"net/url"
	"time"

	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/domain/entry"
)

// Cache key layout. IDs are UUIDs; free text is escaped so it cannot contain
// the key separator.
//
//	Data         user:<id>  users:all  group:<id>  groups:user:<uid>
//	             category:<id>  categories:group:<gid>  category:count:<id>
//	             entry:<id>  entries:category:<cid>:<from>:<to>
//	Validation   available:email:<email>:<exclude>
//	             available:category:<gid>:<name>:<exclude>
//	Calculation  total:entry:<id>  total:category:<id>  balance:group:<gid>
//	             summary:group:<gid>:<YYYY-MM>
const (
	usersAllKey = "users:all"
	monthLayout = "2006-01"
)

var (
	groupPrefix       = cache.Prefix("group")
	groupsPrefix      = cache.Prefix("groups")
	categoryPrefix    = cache.Prefix("category")
	categoriesPrefix  = cache.Prefix("categories")
	entryPrefix       = cache.Prefix("entry")
	entriesPrefix     = cache.Prefix("entries")
	emailAvailPrefix  = cache.Prefix("available", "email")
	entryTotalsPrefix = cache.Prefix("total", "entry")
)

func escape(s string) string { return url.QueryEscape(s) }

func userKey(id string) string { return cache.Key("user", id) }

func emailAvailableKey(email, excludeID string) string {
	return cache.Key("available", "email", escape(email), excludeID)
}

func groupKey(id string) string { return cache.Key("group", id) }

func groupsByUserKey(userID string) string { return cache.Key("groups", "user", userID) }

func categoryKey(id string) string { return cache.Key("category", id) }

func categoriesByGroupKey(groupID string) string {
	return cache.Key("categories", "group", groupID)
}

func categoryCountKey(id string) string { return cache.Key("category", "count", id) }

func categoryNameAvailableKey(groupID, name, excludeID string) string {
	return cache.Key("available", "category", groupID, escape(name), excludeID)
}

func categoryNamesPrefix(groupID string) string {
	return cache.Prefix("available", "category", groupID)
}

func entryKey(id string) string { return cache.Key("entry", id) }

func entriesKey(f entry.Filter) string {
	return cache.Key("entries", "category", f.CategoryID, stamp(f.From), stamp(f.To))
}

func entriesByCategoryPrefix(categoryID string) string {
	return cache.Prefix("entries", "category", categoryID)
}

func entryTotalKey(id string) string { return cache.Key("total", "entry", id) }

func categoryTotalKey(id string) string { return cache.Key("total", "category", id) }

func groupBalanceKey(groupID string) string { return cache.Key("balance", "group", groupID) }

func monthSummaryKey(groupID string, month time.Time) string {
	return cache.Key("summary", "group", groupID, month.UTC().Format(monthLayout))
}

func monthSummariesPrefix(groupID string) string {
	return cache.Prefix("summary", "group", groupID)
}

// stamp renders a filter bound; the zero time means unbounded.
func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("20060102T150405.000000000Z")
}
