package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Key derives a deterministic cache key from a scope identifier (pool or
// user) and the query parameters. Parameters are sorted by name so two
// logically identical queries always hash to the same key regardless of how
// the argument map was built. The scope is length-prefixed so a scope
// containing the separator characters cannot collide with a different
// scope+params combination.
func Key(scopeID string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(scopeID)))
	sb.WriteByte(':')
	sb.WriteString(scopeID)
	for _, name := range names {
		sb.WriteByte('|')
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(params[name])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// CanonicalParams renders the sorted parameter list for durable storage.
func CanonicalParams(params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+params[name])
	}
	return strings.Join(pairs, "&")
}
