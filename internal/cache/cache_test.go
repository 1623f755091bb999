package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := New(Config{Driver: "redis", Addr: mr.Addr(), Prefix: "fg"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return map[string]Client{
		"memory": NewMemory("fg", 0),
		"redis":  rc,
	}
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(ctx, "missing")
			require.True(t, IsNotFound(err))

			require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
			got, err := c.Get(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, []byte("v"), got)

			require.NoError(t, c.Delete(ctx, "k"))
			_, err = c.Get(ctx, "k")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, c.Ping(ctx))
		})
	}
}

func TestRedis_PrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(Config{Driver: "redis", Addr: mr.Addr(), Prefix: "fg", DefaultTTL: time.Minute})
	require.NoError(t, err)

	require.NoError(t, c.Set(context.Background(), "profile", []byte("x"), 0))
	require.True(t, mr.Exists("fg:profile"))
	require.Equal(t, time.Minute, mr.TTL("fg:profile"))

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(context.Background(), "profile")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Expiry(t *testing.T) {
	c := NewMemory("", 0)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, "k")
		return IsNotFound(err)
	}, time.Second, 5*time.Millisecond)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(Config{Driver: "memcached"})
	require.Error(t, err)
}
