package pagelet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet"
)

func TestNewRegistryValidation(t *testing.T) {
	status := []*pagelet.Fragment{
		{ID: "not-found", Render: renderStatic("nf")},
		{ID: "server-error", Render: renderStatic("se")},
	}
	opts := pagelet.RegistryOptions{NotFoundID: "not-found", ServerErrorID: "server-error"}

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := pagelet.NewRegistry(append([]*pagelet.Fragment{
			{ID: "", Render: renderStatic("x")},
		}, status...), opts)
		assert.ErrorContains(t, err, "empty id")
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := pagelet.NewRegistry(append([]*pagelet.Fragment{
			{ID: "a", Render: renderStatic("x")},
			{ID: "a", Render: renderStatic("y")},
		}, status...), opts)
		assert.ErrorContains(t, err, "duplicate fragment id")
	})

	t.Run("rejects missing render function", func(t *testing.T) {
		_, err := pagelet.NewRegistry(append([]*pagelet.Fragment{
			{ID: "a"},
		}, status...), opts)
		assert.ErrorContains(t, err, "no render function")
	})

	t.Run("rejects unknown child reference", func(t *testing.T) {
		_, err := pagelet.NewRegistry(append([]*pagelet.Fragment{
			{ID: "a", Render: renderStatic("x"), Children: []string{"ghost"}},
		}, status...), opts)
		assert.ErrorContains(t, err, "unknown child")
	})

	t.Run("rejects child cycles", func(t *testing.T) {
		_, err := pagelet.NewRegistry(append([]*pagelet.Fragment{
			{ID: "a", Render: renderStatic("x"), Children: []string{"b"}},
			{ID: "b", Render: renderStatic("y"), Children: []string{"a"}},
		}, status...), opts)
		assert.ErrorContains(t, err, "cycle")
	})

	t.Run("rejects a missing not-found fragment", func(t *testing.T) {
		_, err := pagelet.NewRegistry([]*pagelet.Fragment{
			{ID: "server-error", Render: renderStatic("se")},
		}, opts)
		assert.ErrorContains(t, err, "not-found")
	})

	t.Run("rejects a guarded not-found fragment", func(t *testing.T) {
		guard := func(ctx context.Context, inst *pagelet.Instance) (bool, error) { return true, nil }
		_, err := pagelet.NewRegistry([]*pagelet.Fragment{
			{ID: "not-found", Render: renderStatic("nf"), Guard: guard},
			{ID: "server-error", Render: renderStatic("se")},
		}, opts)
		assert.ErrorContains(t, err, "must not have a guard")
	})

	t.Run("rejects an unregistered wrapper", func(t *testing.T) {
		withWrapper := opts
		withWrapper.WrapperID = "layout"
		_, err := pagelet.NewRegistry(status, withWrapper)
		assert.ErrorContains(t, err, "wrapper")
	})
}

func TestRegistryTree(t *testing.T) {
	reg := newRegistry(t, []*pagelet.Fragment{
		{ID: "page", Pattern: "/", Render: renderStatic("p"), Children: []string{"side", "feed"}},
		{ID: "side", Render: renderStatic("s"), Children: []string{"badge"}},
		{ID: "feed", Render: renderStatic("f")},
		{ID: "badge", Render: renderStatic("b")},
	})

	page, ok := reg.Lookup("page")
	require.True(t, ok)

	tree := reg.Tree(page)
	ids := make([]string, len(tree))
	for i, f := range tree {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"page", "side", "badge", "feed"}, ids)
}

func TestRegistryLookups(t *testing.T) {
	reg := newRegistry(t, []*pagelet.Fragment{
		{ID: "home", Pattern: "/", Render: renderStatic("h")},
	})

	_, ok := reg.Lookup("home")
	assert.True(t, ok)
	_, ok = reg.Lookup("ghost")
	assert.False(t, ok)

	assert.Equal(t, "not-found", reg.NotFound().ID)
	assert.Equal(t, "server-error", reg.ServerError().ID)
	assert.Nil(t, reg.Wrapper())
}
