package pagelet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet"
	"github.com/karloscodes/pagelet/cache"
	"github.com/karloscodes/pagelet/testsupport"
)

func TestRouterResolve(t *testing.T) {
	reg := newRegistry(t, []*pagelet.Fragment{
		{ID: "home", Pattern: "/", Render: renderStatic("h")},
		{ID: "user", Pattern: "/users/:id", Render: renderStatic("u")},
		{ID: "admin-user", Pattern: "/users/:id", Methods: []string{"GET"}, Render: renderStatic("a")},
		{ID: "post-only", Pattern: "/users/:id", Methods: []string{"POST"}, Render: renderStatic("p")},
	})
	log := testsupport.NewTestLogger()

	t.Run("never empty, fallback last", func(t *testing.T) {
		rt := pagelet.NewRouter(reg, nil, log)

		got := rt.Resolve(context.Background(), "GET", "/nowhere", "")
		require.Len(t, got, 1)
		assert.Equal(t, "not-found", got[0].ID)
	})

	t.Run("matches in registration order and filters by method", func(t *testing.T) {
		rt := pagelet.NewRouter(reg, nil, log)

		got := rt.Resolve(context.Background(), "GET", "/users/7", "")
		ids := fragmentIDs(got)
		assert.Equal(t, []string{"user", "admin-user", "not-found"}, ids)

		got = rt.Resolve(context.Background(), "POST", "/users/7", "")
		assert.Equal(t, []string{"user", "post-only", "not-found"}, fragmentIDs(got))
	})

	t.Run("explicit id bypasses path matching", func(t *testing.T) {
		rt := pagelet.NewRouter(reg, nil, log)

		got := rt.Resolve(context.Background(), "GET", "/whatever", "user")
		assert.Equal(t, []string{"user", "not-found"}, fragmentIDs(got))

		got = rt.Resolve(context.Background(), "GET", "/whatever", "ghost")
		assert.Equal(t, []string{"not-found"}, fragmentIDs(got))
	})

	t.Run("cached resolution is deterministic", func(t *testing.T) {
		store := cache.NewMemoryStore(cache.WithCleanupInterval(0))
		rt := pagelet.NewRouter(reg, store, log)

		first := rt.Resolve(context.Background(), "GET", "/users/7", "")
		second := rt.Resolve(context.Background(), "GET", "/users/7", "")
		assert.Equal(t, fragmentIDs(first), fragmentIDs(second))

		// The stored entry holds the list without the fallback.
		assert.True(t, store.Exist(context.Background(), "GET@/users/7"))
	})

	t.Run("fallback is appended to cache hits too", func(t *testing.T) {
		store := cache.NewMemoryStore(cache.WithCleanupInterval(0))
		rt := pagelet.NewRouter(reg, store, log)

		rt.Resolve(context.Background(), "GET", "/", "")
		got := rt.Resolve(context.Background(), "GET", "/", "")
		assert.Equal(t, []string{"home", "not-found"}, fragmentIDs(got))
	})

	t.Run("corrupt cache entry falls back to a scan", func(t *testing.T) {
		store := cache.NewMemoryStore(cache.WithCleanupInterval(0))
		require.NoError(t, store.Write(context.Background(), "GET@/", []byte("not json")))

		rt := pagelet.NewRouter(reg, store, log)
		got := rt.Resolve(context.Background(), "GET", "/", "")
		assert.Equal(t, []string{"home", "not-found"}, fragmentIDs(got))
	})

	t.Run("invalidation drops the cached entry", func(t *testing.T) {
		store := cache.NewMemoryStore(cache.WithCleanupInterval(0))
		rt := pagelet.NewRouter(reg, store, log)

		rt.Resolve(context.Background(), "GET", "/", "")
		rt.InvalidateRoute(context.Background(), "GET", "/")
		assert.False(t, store.Exist(context.Background(), "GET@/"))

		rt.Resolve(context.Background(), "GET", "/", "")
		rt.InvalidateAll(context.Background())
		assert.False(t, store.Exist(context.Background(), "GET@/"))
	})
}

func fragmentIDs(fragments []*pagelet.Fragment) []string {
	ids := make([]string, len(fragments))
	for i, f := range fragments {
		ids[i] = f.ID
	}
	return ids
}
