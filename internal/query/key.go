package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cache entry. Keys are ordered; families share a leading
// prefix such as Key{"session"} or Key{"ingestion", "jobs"}.
type Key []string

func NewKey(parts ...any) Key {
	key := make(Key, 0, len(parts))
	for _, part := range parts {
		key = append(key, fmt.Sprint(part))
	}
	return key
}

// HasPrefix matches element-wise, so Key{"sessions"} does not start with
// Key{"session"}. An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) clone() Key {
	return append(Key(nil), k...)
}

func (k Key) id() string {
	raw, err := json.Marshal([]string(k))
	if err != nil {
		return strings.Join(k, "\x1f")
	}
	return string(raw)
}
