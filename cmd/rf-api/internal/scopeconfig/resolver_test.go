package scopeconfig

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

func testResolver() *StaticResolver {
	return &StaticResolver{
		Values: map[string]map[string]map[string]string{
			"manufacturer": {
				"shure": {
					"fieldunit.battery.warn-thresholds": "30,20,10",
				},
			},
			"site": {
				"arena": {
					"sweep.interval":                    "30s",
					"fieldunit.battery.warn-thresholds": "50",
				},
			},
			"global": {
				"": {
					"sweep.interval":                    "60s",
					"fieldunit.battery.warn-thresholds": "25,15,10,5",
				},
			},
		},
	}
}

func TestResolverFirstPresentValueWins(t *testing.T) {
	r := testResolver()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		chain ScopeChain
		want  string
	}{
		{
			name: "manufacturer scope shadows everything",
			key:  "fieldunit.battery.warn-thresholds",
			chain: ScopeChain{
				{Kind: "manufacturer", ID: "shure"},
				{Kind: "site", ID: "arena"},
				{Kind: "global"},
			},
			want: "30,20,10",
		},
		{
			name: "missing manufacturer falls through to site",
			key:  "fieldunit.battery.warn-thresholds",
			chain: ScopeChain{
				{Kind: "manufacturer", ID: "sennheiser"},
				{Kind: "site", ID: "arena"},
				{Kind: "global"},
			},
			want: "50",
		},
		{
			name:  "global only",
			key:   "sweep.interval",
			chain: GlobalChain,
			want:  "60s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Get(ctx, tt.key, tt.chain)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolverMissingKeyIsNotFound(t *testing.T) {
	r := testResolver()

	_, err := r.Get(context.Background(), "no.such.key", GlobalChain)

	require.Error(t, err)
	assert.True(t, inventory.IsNotFound(err))
}

func TestGetDuration(t *testing.T) {
	r := testResolver()
	ctx := context.Background()

	d, err := GetDuration(ctx, r, "sweep.interval", ScopeChain{{Kind: "site", ID: "arena"}, {Kind: "global"}}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = GetDuration(ctx, r, "no.such.key", GlobalChain, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d, "missing key falls back to the default")
}

func TestGetIntSlice(t *testing.T) {
	r := testResolver()
	ctx := context.Background()

	chain := ScopeChain{{Kind: "manufacturer", ID: "shure"}, {Kind: "global"}}

	got, err := GetIntSlice(ctx, r, "fieldunit.battery.warn-thresholds", chain, []int{25, 15, 10, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{30, 20, 10}, got)

	got, err = GetIntSlice(ctx, r, "no.such.key", GlobalChain, []int{25, 15, 10, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{25, 15, 10, 5}, got, "missing key falls back to the default")

	r.Values["global"][""]["broken"] = "1,two,3"
	_, err = GetIntSlice(ctx, r, "broken", GlobalChain, nil)
	require.Error(t, err)
}

func TestCachingResolver(t *testing.T) {
	inner := testResolver()
	c := NewCachingResolver(inner, time.Minute)

	current := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	ctx := context.Background()

	got, err := c.Get(ctx, "sweep.interval", GlobalChain)
	require.NoError(t, err)
	assert.Equal(t, "60s", got)

	// the upstream change is invisible until the ttl expires
	inner.Values["global"][""]["sweep.interval"] = "90s"

	got, err = c.Get(ctx, "sweep.interval", GlobalChain)
	require.NoError(t, err)
	assert.Equal(t, "60s", got)

	current = current.Add(2 * time.Minute)

	got, err = c.Get(ctx, "sweep.interval", GlobalChain)
	require.NoError(t, err)
	assert.Equal(t, "90s", got)
}

func TestCachingResolverCachesNotFound(t *testing.T) {
	inner := testResolver()
	c := NewCachingResolver(inner, time.Minute)

	_, err := c.Get(context.Background(), "no.such.key", GlobalChain)
	require.Error(t, err)
	assert.True(t, inventory.IsNotFound(err))

	inner.Values["global"][""]["no.such.key"] = "late"

	_, err = c.Get(context.Background(), "no.such.key", GlobalChain)
	require.Error(t, err, "negative result stays cached within the ttl")
}
