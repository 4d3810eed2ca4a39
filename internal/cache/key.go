package cache

import "strings"

const keySep = ":"

// Key joins namespace parts into a cache key, e.g. Key("category", "count", id)
// yields "category:count:<id>".
func Key(parts ...string) string {
	return strings.Join(parts, keySep)
}

// Prefix returns the key prefix matching every key built from parts plus at
// least one more part. Use it with InvalidatePrefix.
func Prefix(parts ...string) string {
	return Key(parts...) + keySep
}
