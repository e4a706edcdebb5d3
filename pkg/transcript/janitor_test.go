package transcript

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJanitor(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	j := NewJanitor(store, 0, zerolog.Nop())
	assert.Equal(t, DefaultSweepInterval, j.interval)
	assert.False(t, j.IsRunning())
}

func TestJanitorStartStop(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	j := NewJanitor(store, time.Minute, zerolog.Nop())

	require.NoError(t, j.Start())
	assert.True(t, j.IsRunning())
	assert.Error(t, j.Start())

	require.NoError(t, j.Stop())
	assert.False(t, j.IsRunning())
	assert.Error(t, j.Stop())

	t.Run("restart after stop", func(t *testing.T) {
		require.NoError(t, j.Start())
		require.NoError(t, j.Stop())
	})
}

func TestJanitorSweepNow(t *testing.T) {
	store, clock := newTestStore(t, Options{TTL: 30 * time.Second})
	j := NewJanitor(store, time.Minute, zerolog.Nop())

	require.NoError(t, store.Open("session-1"))
	require.NoError(t, store.Open("session-2"))

	assert.Equal(t, 0, j.SweepNow())

	clock.Advance(31 * time.Second)
	assert.Equal(t, 2, j.SweepNow())
	assert.Equal(t, 0, store.Len())
}

func TestJanitorScheduledSweep(t *testing.T) {
	store, clock := newTestStore(t, Options{TTL: 30 * time.Second})
	require.NoError(t, store.Open("session-1"))
	clock.Advance(time.Minute)

	j := NewJanitor(store, time.Second, zerolog.Nop())
	require.NoError(t, j.Start())
	defer j.Stop()

	require.Eventually(t, func() bool {
		return store.Len() == 0
	}, 5*time.Second, 50*time.Millisecond)
}
