package handler

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/ui/model"
)

func newTestModel() *model.OnlineModel {
	m := model.NewOnlineModel(nil, model.WithClock(clockwork.NewFakeClock()))
	m.SetPhase(model.PhaseLobby)
	return m
}

func gameState(typed string, started bool) *protocol.Message {
	return protocol.MustNewMessage(protocol.MsgGameState, protocol.GameStatePayload{
		PlayersInfo: map[string]protocol.PlayerInfo{
			"p1": {Nickname: "ayşe", Role: role.Blind},
			"p2": {Nickname: "Player-2", Role: role.Deaf},
		},
		TargetText:  "ab",
		TypedText:   typed,
		GameStarted: started,
	})
}

func TestHandleServerMessage_PlayerID(t *testing.T) {
	m := newTestModel()

	cmd := HandleServerMessage(m, protocol.MustNewMessage(protocol.MsgPlayerID, protocol.PlayerIDPayload{ID: "p1", Nickname: "Player-1"}))
	assert.Nil(t, cmd)
	assert.Equal(t, "p1", m.PlayerID())
	assert.Equal(t, "Player-1", m.PlayerName())
}

func TestHandleServerMessage_Round(t *testing.T) {
	m := newTestModel()
	m.SetPlayerInfo("p1", "Player-1")

	HandleServerMessage(m, gameState("", true))
	assert.Equal(t, model.PhasePlaying, m.Phase())
	assert.Equal(t, "ayşe", m.PlayerName(), "nickname follows the snapshot")
	assert.Equal(t, role.Blind, m.State().RoleOf("p1"))

	m.SetMode(model.ModeTyping)
	HandleServerMessage(m, gameState("a", true))
	assert.Equal(t, "a", m.State().TypedText)
	assert.Equal(t, model.ModeTyping, m.Mode())

	HandleServerMessage(m, gameState("ab", false))
	assert.Equal(t, model.PhaseGameOver, m.Phase())
	assert.Equal(t, model.ModeCommand, m.Mode(), "typing mode ends with the round")

	HandleServerMessage(m, protocol.MustNewMessage(protocol.MsgGameOver, protocol.GameOverPayload{TimeTaken: 2.5}))
	assert.True(t, m.State().Finished)
	assert.InDelta(t, 2.5, m.State().TimeTaken, 1e-9)

	HandleServerMessage(m, protocol.MustNewMessage(protocol.MsgGameState, protocol.GameStatePayload{
		PlayersInfo: map[string]protocol.PlayerInfo{"p1": {Nickname: "ayşe"}},
	}))
	assert.Equal(t, model.PhaseLobby, m.Phase())
	assert.Equal(t, role.Unset, m.State().RoleOf("p1"))
}

func TestHandleServerMessage_MessageBox(t *testing.T) {
	m := newTestModel()

	cmd := HandleServerMessage(m, protocol.NewErrorMessage(protocol.ErrCodeRoleForbidden))
	require.NotNil(t, cmd)
	n := m.GetCurrentNotification()
	require.NotNil(t, n)
	assert.Equal(t, model.NotifyMessageBox, n.Type)
	assert.Contains(t, n.Message, protocol.ErrorMessages[protocol.ErrCodeRoleForbidden])
	assert.True(t, n.Temporary)

	_, _ = m.Update(model.ClearSystemNotificationMsg{})
	assert.Nil(t, m.GetCurrentNotification())
}

func TestHandleServerMessage_RateLimitAndMaintenance(t *testing.T) {
	m := newTestModel()

	HandleServerMessage(m, protocol.NewErrorMessage(protocol.ErrCodeServerMaintenance))
	n := m.GetCurrentNotification()
	require.NotNil(t, n)
	assert.Equal(t, model.NotifyMaintenance, n.Type)
	assert.False(t, n.Temporary)

	HandleServerMessage(m, protocol.NewErrorMessage(protocol.ErrCodeRateLimit))
	n = m.GetCurrentNotification()
	require.NotNil(t, n)
	assert.Equal(t, model.NotifyRateLimit, n.Type, "rate limit outranks maintenance")

	_, _ = m.Update(model.ClearSystemNotificationMsg{})
	n = m.GetCurrentNotification()
	require.NotNil(t, n)
	assert.Equal(t, model.NotifyMaintenance, n.Type, "maintenance notice persists")
}

func TestHandleServerMessage_Unknown(t *testing.T) {
	m := newTestModel()

	assert.Nil(t, HandleServerMessage(m, &protocol.Message{Type: "bogus"}))
	assert.Nil(t, HandleServerMessage(m, &protocol.Message{Type: protocol.MsgGameState, Payload: []byte(`{"typed_text":1}`)}))
	assert.Equal(t, model.PhaseLobby, m.Phase())
}
