package scopeconfig

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// ViperResolver resolves scope-hierarchical values from the service
// configuration. Values live under "scopes.<kind>.<id>.<key>", the global
// scope under "scopes.global.<key>". It serves deployments that carry their
// scope configuration in the config file instead of a dedicated store.
type ViperResolver struct {
	v *viper.Viper
}

// NewViperResolver creates a resolver over the given viper instance.
func NewViperResolver(v *viper.Viper) *ViperResolver {
	return &ViperResolver{v: v}
}

// Get implements Resolver.
func (r *ViperResolver) Get(_ context.Context, key string, chain ScopeChain) (string, error) {
	for _, scope := range chain {
		var path string
		if scope.ID == "" {
			path = fmt.Sprintf("scopes.%s.%s", scope.Kind, key)
		} else {
			path = fmt.Sprintf("scopes.%s.%s.%s", scope.Kind, scope.ID, key)
		}

		if r.v.IsSet(path) {
			return r.v.GetString(path), nil
		}
	}
	return "", inventory.NotFound("no value for %q along scope chain", key)
}
