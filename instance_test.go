package pagelet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/karloscodes/pagelet"
	"github.com/karloscodes/pagelet/testsupport"
)

func TestInstancePool(t *testing.T) {
	frag := &pagelet.Fragment{ID: "feed", Render: renderStatic("f")}
	req := testsupport.NewRequest("GET", "/")

	t.Run("recycles released instances", func(t *testing.T) {
		pool := pagelet.NewInstancePool(4)

		first := pool.Acquire(frag, req)
		first.Data["user"] = "alice"
		first.Params = pagelet.Params{"id": "1"}
		pool.Release(first)
		assert.Equal(t, 1, pool.Idle())

		second := pool.Acquire(frag, req)
		assert.Same(t, first, second)
		assert.Empty(t, second.Data)
		assert.Nil(t, second.Params)
		assert.Equal(t, 0, pool.Idle())
	})

	t.Run("caps idle instances at max", func(t *testing.T) {
		pool := pagelet.NewInstancePool(1)

		a := pool.Acquire(frag, req)
		b := pool.Acquire(frag, req)
		pool.Release(a)
		pool.Release(b)
		assert.Equal(t, 1, pool.Idle())
	})

	t.Run("zero max disables pooling", func(t *testing.T) {
		pool := pagelet.NewInstancePool(0)
		pool.Release(pool.Acquire(frag, req))
		assert.Equal(t, 0, pool.Idle())
	})

	t.Run("release tolerates nil", func(t *testing.T) {
		pool := pagelet.NewInstancePool(4)
		pool.Release(nil)
		assert.Equal(t, 0, pool.Idle())
	})
}

func TestInstanceAccessors(t *testing.T) {
	frag := &pagelet.Fragment{ID: "feed", Render: renderStatic("f")}
	pool := pagelet.NewInstancePool(1)
	req := testsupport.NewRequest("GET", "/")

	inst := pool.Acquire(frag, req)
	inst.Params = pagelet.Params{"id": "9"}

	assert.Same(t, frag, inst.Fragment())
	assert.Equal(t, "feed", inst.ID())
	assert.Equal(t, "9", inst.Param("id"))
	assert.Equal(t, "", inst.Param("missing"))
	assert.Same(t, req, inst.Request)
	assert.Nil(t, inst.Bootstrap())
}
