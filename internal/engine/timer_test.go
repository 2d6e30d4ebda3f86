package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timedGame(t *testing.T, ms int64) State {
	t.Helper()
	cfg := defaultConfig()
	cfg.TurnTimerMs = &ms
	return startedGame(t, cfg, "alice", "bob")
}

func TestTimerExpired(t *testing.T) {
	s := timedGame(t, 1000)

	assert.False(t, TimerExpired(s, t0))
	assert.False(t, TimerExpired(s, t0.Add(999*time.Millisecond)))
	assert.True(t, TimerExpired(s, t0.Add(time.Second)))

	deadline, ok := TurnDeadline(s)
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Second).UnixMilli(), deadline.UnixMilli())

	untimed := startedGame(t, defaultConfig(), "alice", "bob")
	assert.False(t, TimerExpired(untimed, t0.Add(time.Hour)))
	_, ok = TurnDeadline(untimed)
	assert.False(t, ok)
}

func TestTimerExpiry_ForcedPass(t *testing.T) {
	s := timedGame(t, 1000)

	_, err := ApplyAction(s, TimerExpiry("alice"), t0.Add(500*time.Millisecond))
	require.ErrorIs(t, err, ErrIllegalMove, "timer still running")

	_, err = ApplyAction(s, TimerExpiry("bob"), t0.Add(time.Second))
	require.ErrorIs(t, err, ErrNotYourTurn)

	next, err := ApplyAction(s, TimerExpiry("alice"), t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "bob", *next.CurrentPlayerID)
	assert.Equal(t, 1, next.Players[0].MissedTurns)
	assert.Equal(t, t0.Add(time.Second).UnixMilli(), next.TurnStartedAtMs)
	assert.Equal(t, s.Pieces, next.Pieces, "a forced pass moves nothing")
}

func TestTimerExpiry_UntimedGame(t *testing.T) {
	s := startedGame(t, defaultConfig(), "alice", "bob")
	_, err := ApplyAction(s, TimerExpiry("alice"), t0.Add(time.Hour))
	require.ErrorIs(t, err, ErrIllegalMove)
}

func TestTimerExpiry_ForfeitAfterRepeatedMisses(t *testing.T) {
	s := timedGame(t, 1000)
	now := t0

	var err error
	for miss := 1; miss <= MaxMissedTurns; miss++ {
		now = now.Add(time.Second)
		s, err = ApplyAction(s, TimerExpiry("alice"), now)
		require.NoError(t, err)
		if miss == MaxMissedTurns {
			break
		}
		assert.Equal(t, miss, s.Players[0].MissedTurns)

		now = now.Add(100 * time.Millisecond)
		s, err = ApplyAction(s, Pass("bob"), now)
		require.NoError(t, err)
	}

	assert.Equal(t, PhaseFinished, s.Phase)
	assert.Equal(t, WinTimeout, *s.WinCondition)
	assert.Equal(t, "bob", *s.WinnerID)
	assert.True(t, s.Players[0].Eliminated)
}

func TestTimerExpiry_MoveResetsMissCounter(t *testing.T) {
	s := timedGame(t, 1000)
	now := t0.Add(time.Second)

	s, err := ApplyAction(s, TimerExpiry("alice"), now)
	require.NoError(t, err)
	s, err = ApplyAction(s, Pass("bob"), now)
	require.NoError(t, err)
	s, err = ApplyAction(s, Pass("alice"), now)
	require.NoError(t, err)
	assert.Zero(t, s.Players[0].MissedTurns)
}
