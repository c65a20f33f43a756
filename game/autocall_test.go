package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoCallerDrivesRoundToCompletion(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 2, 100)
	_, err := e.Join(2, "p", 145)
	require.NoError(t, err)
	_, err = e.Start(adminID)
	require.NoError(t, err)

	ac := NewAutoCaller(e, adminID, time.Millisecond)
	ac.Start()

	assert.Eventually(t, func() bool {
		return !e.Active() && !ac.Running()
	}, 5*time.Second, 10*time.Millisecond, "auto-caller should finish the round and stop itself")

	// A single player with the line pattern always completes within the
	// 75-token universe, so the round must have ended with a payout.
	assert.Equal(t, 100, e.WalletOf(2))
	assert.Equal(t, 1, e.Stats().TotalGames)
}

func TestAutoCallerStopIsIdempotent(t *testing.T) {
	e := newTestEngine(t, Options{})
	ac := NewAutoCaller(e, adminID, time.Hour)

	assert.NotPanics(t, func() {
		ac.Stop()
		ac.Stop()
	})

	ac.Start()
	ac.Start() // second start is a no-op
	assert.True(t, ac.Running())

	ac.Stop()
	ac.Stop()
	assert.False(t, ac.Running())
}

func TestAutoCallerHaltsWhenRoundInactive(t *testing.T) {
	e := newTestEngine(t, Options{})

	// No round running: the first tick must notice and stop.
	ac := NewAutoCaller(e, adminID, time.Millisecond)
	ac.Start()

	assert.Eventually(t, func() bool { return !ac.Running() },
		time.Second, 5*time.Millisecond)
}
