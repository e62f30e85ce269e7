package syncx

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// GetString safely extracts a string value from a map
func GetString(m map[string]any, k string) (string, bool) {
	if v, ok := m[k]; ok {
		if s, ok2 := v.(string); ok2 {
			return s, true
		}
	}
	return "", false
}

// FirstString returns the first non-empty string found under the given keys
func FirstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := GetString(m, k); ok && s != "" {
			return s
		}
	}
	return ""
}

// ParseUUID parses a UUID string
func ParseUUID(s string) (uuid.UUID, bool) {
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}

// ParseID parses a positive decimal record id
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
