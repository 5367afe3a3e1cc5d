package lazy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conn struct {
	name   string
	closed bool
}

func TestRegistry_CreatesOnceOnFirstGet(t *testing.T) {
	opened := 0
	r := New("conn", func(name string, addr string) (*conn, error) {
		opened++
		return &conn{name: name + "@" + addr}, nil
	})
	require.NoError(t, r.Register("a", "host-a"))
	require.NoError(t, r.Register("b", "host-b"))
	assert.ErrorContains(t, r.Register("a", "other"), `conn "a" already registered`)
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Zero(t, opened)

	first, err := r.Get("a")
	require.NoError(t, err)
	second, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "a@host-a", first.name)
	assert.Equal(t, 1, opened)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotRegistered)

	addr, ok := r.Options("b")
	assert.True(t, ok)
	assert.Equal(t, "host-b", addr)
}

func TestRegistry_FailedOpenIsNotCached(t *testing.T) {
	fail := true
	r := New("conn", func(string, struct{}) (*conn, error) {
		if fail {
			return nil, errors.New("refused")
		}
		return &conn{}, nil
	})
	require.NoError(t, r.Register("x", struct{}{}))

	_, err := r.Get("x")
	assert.ErrorContains(t, err, "refused")

	fail = false
	c, err := r.Get("x")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestRegistry_CloseReleasesInReverseCreationOrder(t *testing.T) {
	r := New("conn", func(name string, _ int) (*conn, error) { return &conn{name: name}, nil })
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, r.Register(n, 0))
	}
	_, _ = r.Get("b")
	_, _ = r.Get("a")

	var order []string
	err := r.Close(func(c *conn) error {
		order = append(order, c.name)
		c.closed = true
		if c.name == "b" {
			return errors.New("busy")
		}
		return nil
	})
	assert.Equal(t, []string{"a", "b"}, order)
	assert.ErrorContains(t, err, `conn "b": busy`)

	again, err := r.Get("a")
	require.NoError(t, err)
	assert.False(t, again.closed)
}
