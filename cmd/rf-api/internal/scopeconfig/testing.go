package scopeconfig

import (
	"context"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// StaticResolver resolves from an in-memory map, keyed by scope kind, scope
// id and configuration key. It is used in tests and for standalone setups
// without a configuration store.
type StaticResolver struct {
	// Values maps scope kind -> scope id -> key -> value. The global scope
	// uses an empty scope id.
	Values map[string]map[string]map[string]string
}

// Get implements Resolver.
func (s *StaticResolver) Get(_ context.Context, key string, chain ScopeChain) (string, error) {
	for _, scope := range chain {
		byID, ok := s.Values[scope.Kind]
		if !ok {
			continue
		}
		byKey, ok := byID[scope.ID]
		if !ok {
			continue
		}
		if v, ok := byKey[key]; ok {
			return v, nil
		}
	}
	return "", inventory.NotFound("no value for %q along scope chain", key)
}
