package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/protocol"
)

func TestNewGameState(t *testing.T) {
	gs := NewGameState()

	require.NotNil(t, gs, "NewGameState should not return nil")
	assert.Nil(t, gs.Players)
	assert.False(t, gs.Started)
	assert.False(t, gs.Finished)
	assert.Zero(t, gs.ElapsedAt(time.Now()))
}

func TestGameState_Apply(t *testing.T) {
	now := time.Now()
	gs := NewGameState()
	gs.Apply(&protocol.GameStatePayload{
		PlayersInfo: map[string]protocol.PlayerInfo{
			"p2": {Nickname: "Player-2", Role: role.Deaf},
			"p1": {Nickname: "Player-1", Role: role.Blind, X: 3, Y: 4},
			"p3": {Nickname: "Player-1"},
		},
		TargetText:  "merhaba",
		TypedText:   "mer",
		ElapsedTime: 1.5,
		GameStarted: true,
	}, now)

	require.Len(t, gs.Players, 3)
	assert.Equal(t, "p1", gs.Players[0].ID, "players are ordered by nickname then id")
	assert.Equal(t, "p3", gs.Players[1].ID)
	assert.Equal(t, "p2", gs.Players[2].ID)
	assert.Equal(t, role.Blind, gs.RoleOf("p1"))
	assert.Equal(t, role.Unset, gs.RoleOf("missing"))

	p, ok := gs.Player("p1")
	require.True(t, ok)
	assert.InDelta(t, 3.0, p.X, 1e-9)

	typed, total := gs.Progress()
	assert.Equal(t, 3, typed)
	assert.Equal(t, 7, total)

	next, ok := gs.NextRune()
	require.True(t, ok)
	assert.Equal(t, 'h', next)
	assert.False(t, gs.Finished)
}

func TestGameState_ElapsedAt(t *testing.T) {
	now := time.Now()
	gs := NewGameState()
	gs.Apply(&protocol.GameStatePayload{TargetText: "ab", ElapsedTime: 2, GameStarted: true}, now)

	assert.InDelta(t, 2.5, gs.ElapsedAt(now.Add(500*time.Millisecond)), 1e-9)

	gs.Finish(3.25)
	assert.True(t, gs.Finished)
	assert.False(t, gs.Started)
	assert.InDelta(t, 3.25, gs.ElapsedAt(now.Add(time.Hour)), 1e-9, "finished rounds are frozen")
}

func TestGameState_FinishedAndReset(t *testing.T) {
	now := time.Now()
	gs := NewGameState()

	gs.Apply(&protocol.GameStatePayload{TargetText: "ab", TypedText: "ab", ElapsedTime: 1}, now)
	assert.True(t, gs.Finished)
	_, ok := gs.NextRune()
	assert.False(t, ok)

	gs.Finish(1)
	gs.Apply(&protocol.GameStatePayload{}, now)
	assert.False(t, gs.Finished)
	assert.Zero(t, gs.TimeTaken)

	gs.Reset()
	assert.Equal(t, &GameState{}, gs)
}

func TestGameState_NextRune_Unicode(t *testing.T) {
	gs := NewGameState()
	gs.Apply(&protocol.GameStatePayload{TargetText: "şeker", TypedText: "ş", GameStarted: true}, time.Now())

	next, ok := gs.NextRune()
	require.True(t, ok)
	assert.Equal(t, 'e', next)
}
