package cache

import (
	"context"
	"encoding/json"
)

// Lookup reads key from c and decodes it into T. A nil cache, a miss and an
// undecodable value all report false.
func Lookup[T any](ctx context.Context, c Cache, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	value, ok := c.Get(ctx, key)
	if !ok {
		return nil, false
	}
	return decode[T](value)
}

// decode accepts the pointer the in-memory cache hands back as well as the
// JSON text redis returns
func decode[T any](value interface{}) (*T, bool) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, false
	case *T:
		return v, true
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, false
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return &out, true
}
