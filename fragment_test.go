package pagelet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet"
)

func renderStatic(view string) pagelet.RenderFunc {
	return func(ctx context.Context, inst *pagelet.Instance) (string, error) {
		return view, nil
	}
}

func newRegistry(t *testing.T, fragments []*pagelet.Fragment) *pagelet.Registry {
	t.Helper()

	fragments = append(fragments,
		&pagelet.Fragment{ID: "not-found", Render: renderStatic("missing")},
		&pagelet.Fragment{ID: "server-error", Render: renderStatic("broken")},
	)
	reg, err := pagelet.NewRegistry(fragments, pagelet.RegistryOptions{
		NotFoundID:    "not-found",
		ServerErrorID: "server-error",
	})
	require.NoError(t, err)
	return reg
}

func TestFragmentMatchPath(t *testing.T) {
	reg := newRegistry(t, []*pagelet.Fragment{
		{ID: "home", Pattern: "/", Render: renderStatic("h")},
		{ID: "user", Pattern: "/users/:id", Render: renderStatic("u")},
		{ID: "docs", Pattern: "/docs/*rest", Render: renderStatic("d")},
		{ID: "child", Render: renderStatic("c")},
	})

	t.Run("root pattern", func(t *testing.T) {
		home, _ := reg.Lookup("home")
		_, ok := home.MatchPath("/")
		assert.True(t, ok)
		_, ok = home.MatchPath("/other")
		assert.False(t, ok)
	})

	t.Run("named parameter", func(t *testing.T) {
		user, _ := reg.Lookup("user")
		params, ok := user.MatchPath("/users/42")
		require.True(t, ok)
		assert.Equal(t, "42", params["id"])

		_, ok = user.MatchPath("/users")
		assert.False(t, ok)
		_, ok = user.MatchPath("/users/42/extra")
		assert.False(t, ok)
	})

	t.Run("catch-all", func(t *testing.T) {
		docs, _ := reg.Lookup("docs")
		params, ok := docs.MatchPath("/docs/guides/streaming")
		require.True(t, ok)
		assert.Equal(t, "guides/streaming", params["rest"])
	})

	t.Run("patternless fragments never match", func(t *testing.T) {
		child, _ := reg.Lookup("child")
		assert.False(t, child.Routable())
		_, ok := child.MatchPath("/child")
		assert.False(t, ok)
	})
}

func TestFragmentAllowsMethod(t *testing.T) {
	f := &pagelet.Fragment{Methods: []string{"GET", "HEAD"}}
	assert.True(t, f.AllowsMethod("GET"))
	assert.True(t, f.AllowsMethod("get"))
	assert.False(t, f.AllowsMethod("POST"))

	any := &pagelet.Fragment{}
	assert.True(t, any.AllowsMethod("DELETE"))
}

func TestPatternValidation(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
	}{
		{"missing leading slash", "users/:id"},
		{"unnamed parameter", "/users/:"},
		{"catch-all before final segment", "/docs/*rest/more"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pagelet.NewRegistry([]*pagelet.Fragment{
				{ID: "bad", Pattern: tc.pattern, Render: renderStatic("x")},
				{ID: "not-found", Render: renderStatic("nf")},
				{ID: "server-error", Render: renderStatic("se")},
			}, pagelet.RegistryOptions{NotFoundID: "not-found", ServerErrorID: "server-error"})
			assert.Error(t, err)
		})
	}
}
