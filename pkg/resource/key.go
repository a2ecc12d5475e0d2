package resource

import (
	"strings"

	"github.com/fauxapi/fauxd/internal/id"
)

// CollectionKey derives the collection storage key from a concrete
// request path by stripping trailing identifier-shaped segments
// (numbers and UUIDs). "/stores/7/orders/42" and "/stores/7/orders"
// both map to "/stores/7/orders"; the item key is the full path.
func CollectionKey(path string) string {
	path = strings.TrimSuffix(path, "/")
	for {
		idx := strings.LastIndexByte(path, '/')
		if idx <= 0 {
			return path
		}
		last := path[idx+1:]
		if !id.IsIdentifier(last) {
			return path
		}
		path = path[:idx]
	}
}

// IsItemPath reports whether the path's final segment looks like an
// identifier, meaning the path addresses a single item rather than a
// collection.
func IsItemPath(path string) bool {
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return false
	}
	return id.IsIdentifier(path[idx+1:])
}
