package pagelet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet"
	"github.com/karloscodes/pagelet/testsupport"
)

func guardBool(permit bool) pagelet.GuardFunc {
	return func(ctx context.Context, inst *pagelet.Instance) (bool, error) {
		return permit, nil
	}
}

func TestAuthChainSelect(t *testing.T) {
	log := testsupport.NewTestLogger()
	pool := pagelet.NewInstancePool(8)
	chain := pagelet.NewAuthChain(pool, log)
	req := testsupport.NewRequest("GET", "/users/42")

	t.Run("picks the first permitted candidate", func(t *testing.T) {
		candidates := []*pagelet.Fragment{
			{ID: "admin", Render: renderStatic("a"), Guard: guardBool(false)},
			{ID: "staff", Render: renderStatic("s"), Guard: guardBool(false)},
			{ID: "public", Render: renderStatic("p"), Guard: guardBool(true)},
		}

		inst, err := chain.Select(context.Background(), req, candidates)
		require.NoError(t, err)
		assert.Equal(t, "public", inst.ID())
		pool.Release(inst)
	})

	t.Run("guardless candidates are always permitted", func(t *testing.T) {
		candidates := []*pagelet.Fragment{
			{ID: "open", Render: renderStatic("o")},
		}

		inst, err := chain.Select(context.Background(), req, candidates)
		require.NoError(t, err)
		assert.Equal(t, "open", inst.ID())
		pool.Release(inst)
	})

	t.Run("binds route params before the guard runs", func(t *testing.T) {
		var seen string
		frag := &pagelet.Fragment{
			ID:      "user",
			Pattern: "/users/:id",
			Render:  renderStatic("u"),
			Guard: func(ctx context.Context, inst *pagelet.Instance) (bool, error) {
				seen = inst.Param("id")
				return true, nil
			},
		}
		newRegistry(t, []*pagelet.Fragment{frag})

		inst, err := chain.Select(context.Background(), req, []*pagelet.Fragment{frag})
		require.NoError(t, err)
		assert.Equal(t, "42", seen)
		assert.Equal(t, "42", inst.Param("id"))
		pool.Release(inst)
	})

	t.Run("guard errors count as denials", func(t *testing.T) {
		candidates := []*pagelet.Fragment{
			{ID: "flaky", Render: renderStatic("f"), Guard: func(ctx context.Context, inst *pagelet.Instance) (bool, error) {
				return true, errors.New("auth backend down")
			}},
			{ID: "fallback", Render: renderStatic("fb")},
		}

		inst, err := chain.Select(context.Background(), req, candidates)
		require.NoError(t, err)
		assert.Equal(t, "fallback", inst.ID())
		pool.Release(inst)
	})

	t.Run("exhaustion reports no candidate", func(t *testing.T) {
		candidates := []*pagelet.Fragment{
			{ID: "locked", Render: renderStatic("l"), Guard: guardBool(false)},
		}

		_, err := chain.Select(context.Background(), req, candidates)
		assert.ErrorIs(t, err, pagelet.ErrNoCandidate)
	})
}
