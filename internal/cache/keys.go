package cache

import "strings"

const (
	GlobalKeyPrefix = "examroom"
)

// Key object types shared by the redis-backed adapters.
const (
	ObjectBlob = "blob"
	ObjectLock = "lock"
)

// GenerateKey builds a namespaced redis key for a component, object type and
// identifier. Extra parts are joined by "_" and appended.
func GenerateKey(component, objectType, identifier string, parts ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, component, objectType, identifier}, ":")
	if len(parts) > 0 {
		return strings.Join([]string{baseKey, strings.Join(parts, "_")}, ":")
	}
	return baseKey
}
