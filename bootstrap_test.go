package pagelet_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet"
	"github.com/karloscodes/pagelet/testsupport"
)

func newBootstrap(t *testing.T, participants int, tr *testsupport.Transport) *pagelet.Bootstrap {
	t.Helper()
	return pagelet.NewBootstrap(pagelet.BootstrapConfig{
		ID:           "test-request",
		Participants: participants,
		Transport:    tr,
		Logger:       testsupport.NewTestLogger(),
	})
}

func TestBootstrapGate(t *testing.T) {
	t.Run("holds writes until the gate opens", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 1, tr)

		require.NoError(t, bs.Write("<div>base</div>"))
		require.NoError(t, bs.Write("<div>more</div>"))
		assert.Empty(t, tr.Flushes())

		require.NoError(t, bs.Flush(true))
		require.Equal(t, []string{"<div>base</div><div>more</div>"}, tr.Flushes())
	})

	t.Run("gateless flush is a no-op before the gate opens", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 1, tr)

		require.NoError(t, bs.Write("queued"))
		require.NoError(t, bs.Flush())
		assert.Empty(t, tr.Flushes())
	})

	t.Run("writes flush immediately once the gate is open", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 2, tr)

		require.NoError(t, bs.Flush(true))
		require.NoError(t, bs.Write("a"))
		require.NoError(t, bs.Write("b"))
		assert.Equal(t, []string{"a", "b"}, tr.Flushes())
	})
}

func TestBootstrapEnd(t *testing.T) {
	t.Run("waits for every participant", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 2, tr)

		require.NoError(t, bs.Write("base"))
		require.NoError(t, bs.Flush(true))

		assert.Equal(t, pagelet.EndNotReady, bs.End(nil))
		assert.False(t, tr.Closed())

		assert.Equal(t, pagelet.EndClosed, bs.End(nil))
		assert.True(t, tr.Closed())

		select {
		case <-bs.Done():
		default:
			t.Fatal("done channel should be closed")
		}
	})

	t.Run("final end drains the queue even with a closed gate", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 1, tr)

		require.NoError(t, bs.Write("late"))
		assert.Equal(t, pagelet.EndClosed, bs.End(nil))
		assert.Equal(t, "late", tr.Body())
	})

	t.Run("end after close reports already closed", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 1, tr)

		assert.Equal(t, pagelet.EndClosed, bs.End(nil))
		assert.Equal(t, pagelet.EndAlreadyClosed, bs.End(nil))
		assert.Equal(t, pagelet.EndAlreadyClosed, bs.End(errors.New("too late")))
	})

	t.Run("write and flush fail after close", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 1, tr)

		bs.End(nil)
		assert.ErrorIs(t, bs.Write("x"), pagelet.ErrClosed)
		assert.ErrorIs(t, bs.Flush(true), pagelet.ErrClosed)
	})

	t.Run("a dead transport still unblocks waiters", func(t *testing.T) {
		tr := &resetTransport{}
		_ = tr.Flush() // peer resets before anything reaches it

		bs := pagelet.NewBootstrap(pagelet.BootstrapConfig{
			ID:           "test-request",
			Participants: 2,
			Transport:    tr,
			Logger:       testsupport.NewTestLogger(),
		})

		assert.Equal(t, pagelet.EndAlreadyClosed, bs.End(nil))
		select {
		case <-bs.Done():
		default:
			t.Fatal("done channel should be closed once the peer is gone")
		}
		assert.Equal(t, pagelet.EndAlreadyClosed, bs.End(nil))
	})

	t.Run("participants below one are clamped", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 0, tr)

		assert.Equal(t, pagelet.EndClosed, bs.End(nil))
	})
}

func TestBootstrapEndWithError(t *testing.T) {
	t.Run("unflushed response turns into a 500", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 2, tr)

		assert.Equal(t, pagelet.EndClosed, bs.End(errors.New("boom")))
		assert.Equal(t, 500, tr.StatusCode())
		assert.Contains(t, tr.Body(), "<!-- render failed -->")
		assert.True(t, tr.Closed())
	})

	t.Run("status is untouched once bytes are on the wire", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := newBootstrap(t, 2, tr)

		require.NoError(t, bs.Write("base"))
		require.NoError(t, bs.Flush(true))

		bs.End(errors.New("boom"))
		assert.Equal(t, 200, tr.StatusCode())
		assert.Contains(t, tr.Body(), "base")
		assert.Contains(t, tr.Body(), "<!-- render failed -->")
	})

	t.Run("custom error markup is used", func(t *testing.T) {
		tr := testsupport.NewTransport()
		bs := pagelet.NewBootstrap(pagelet.BootstrapConfig{
			ID:           "test-request",
			Participants: 1,
			Transport:    tr,
			RenderError:  func(err error) string { return "<p>" + err.Error() + "</p>" },
			Logger:       testsupport.NewTestLogger(),
		})

		bs.End(errors.New("boom"))
		assert.Equal(t, "<p>boom</p>", tr.Body())
	})
}

func TestEndResultString(t *testing.T) {
	assert.Equal(t, "not-ready", pagelet.EndNotReady.String())
	assert.Equal(t, "closed", pagelet.EndClosed.String())
	assert.Equal(t, "already-closed", pagelet.EndAlreadyClosed.String())
}
