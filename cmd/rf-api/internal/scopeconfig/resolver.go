// Package scopeconfig is the client boundary to the scope-hierarchical
// configuration store. The core only consumes values through the Resolver
// interface, the store itself lives outside of this service.
package scopeconfig

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// A Scope is one level of the configuration hierarchy.
type Scope struct {
	Kind string
	ID   string
}

// A ScopeChain is an ordered list of scopes, e.g. manufacturer -> site ->
// organization -> global. The first scope that carries a value wins.
type ScopeChain []Scope

// GlobalChain is the chain that only consults the global scope.
var GlobalChain = ScopeChain{{Kind: "global"}}

// Resolver resolves configuration values along a scope chain.
type Resolver interface {
	// Get returns the first value present along the chain. A missing key
	// returns a NotFound error, callers decide whether that is fatal.
	Get(ctx context.Context, key string, chain ScopeChain) (string, error)
}

// GetDuration resolves a duration value, falling back to the given default
// when the key is absent anywhere along the chain.
func GetDuration(ctx context.Context, r Resolver, key string, chain ScopeChain, fallback time.Duration) (time.Duration, error) {
	v, err := r.Get(ctx, key, chain)
	if err != nil {
		if inventory.IsNotFound(err) {
			return fallback, nil
		}
		return 0, err
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, inventory.Internal(err, "unparsable duration for %q", key)
	}
	return d, nil
}

// GetIntSlice resolves a comma-separated list of integers, falling back to
// the given default when the key is absent anywhere along the chain.
func GetIntSlice(ctx context.Context, r Resolver, key string, chain ScopeChain, fallback []int) ([]int, error) {
	v, err := r.Get(ctx, key, chain)
	if err != nil {
		if inventory.IsNotFound(err) {
			return fallback, nil
		}
		return nil, err
	}

	var res []int
	for _, part := range strings.Split(v, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, inventory.Internal(err, "unparsable integer list for %q", key)
		}
		res = append(res, i)
	}
	return res, nil
}

func cacheKey(key string, chain ScopeChain) string {
	var sb strings.Builder
	sb.WriteString(key)
	for _, s := range chain {
		sb.WriteString("|")
		sb.WriteString(s.Kind)
		sb.WriteString(":")
		sb.WriteString(s.ID)
	}
	return sb.String()
}
