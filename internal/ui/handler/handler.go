// Package handler processes server messages.
package handler

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/sound"
	"github.com/palemoky/shswrite/internal/ui/model"
)

const notificationDuration = 3 * time.Second

// messageHandler 消息处理函数类型
type messageHandler func(m model.Model, msg *protocol.Message) tea.Cmd

// messageHandlers 消息处理器映射表
var messageHandlers = map[protocol.MessageType]messageHandler{
	protocol.MsgPlayerID:   handleMsgPlayerID,
	protocol.MsgGameState:  handleMsgGameState,
	protocol.MsgGameOver:   handleMsgGameOver,
	protocol.MsgMessageBox: handleMsgMessageBox,
	protocol.MsgPong:       func(_ model.Model, _ *protocol.Message) tea.Cmd { return nil },
}

// HandleServerMessage dispatches server messages to appropriate handlers.
func HandleServerMessage(m model.Model, msg *protocol.Message) tea.Cmd {
	if handler, ok := messageHandlers[msg.Type]; ok {
		return handler(m, msg)
	}
	return nil
}

func handleMsgPlayerID(m model.Model, msg *protocol.Message) tea.Cmd {
	payload, err := protocol.ParsePayload[protocol.PlayerIDPayload](msg)
	if err != nil {
		return nil
	}
	m.SetPlayerInfo(payload.ID, payload.Nickname)
	return nil
}

func handleMsgGameState(m model.Model, msg *protocol.Message) tea.Cmd {
	payload, err := protocol.ParsePayload[protocol.GameStatePayload](msg)
	if err != nil {
		return nil
	}

	state := m.State()
	prevTyped, _ := state.Progress()
	state.Apply(payload, m.Now())

	// 昵称以快照为准
	if p, ok := state.Player(m.PlayerID()); ok {
		m.SetPlayerInfo(p.ID, p.Nickname)
	}

	switch {
	case state.Started:
		m.SetPhase(model.PhasePlaying)
		if typed, _ := state.Progress(); typed > prevTyped {
			m.PlaySound(sound.KeyPress)
		}
	case state.Finished:
		m.SetPhase(model.PhaseGameOver)
	default:
		m.SetPhase(model.PhaseLobby)
	}

	if m.Phase() != model.PhasePlaying && m.Mode() == model.ModeTyping {
		m.SetMode(model.ModeCommand)
	}
	return nil
}

func handleMsgGameOver(m model.Model, msg *protocol.Message) tea.Cmd {
	payload, err := protocol.ParsePayload[protocol.GameOverPayload](msg)
	if err != nil {
		return nil
	}

	m.State().Finish(payload.TimeTaken)
	m.SetPhase(model.PhaseGameOver)
	if m.Mode() == model.ModeTyping {
		m.SetMode(model.ModeCommand)
	}
	m.PlaySound(sound.GameOver)
	return nil
}

func handleMsgMessageBox(m model.Model, msg *protocol.Message) tea.Cmd {
	payload, err := protocol.ParsePayload[protocol.MessageBoxPayload](msg)
	if err != nil {
		return nil
	}

	switch payload.Code {
	case protocol.ErrCodeServerMaintenance:
		m.SetNotification(model.NotifyMaintenance, "🔧 "+payload.Content, false)
		return nil
	case protocol.ErrCodeRateLimit:
		m.SetNotification(model.NotifyRateLimit, "⚠️ "+payload.Content, true)
	default:
		m.SetNotification(model.NotifyMessageBox, fmt.Sprintf("%s: %s", payload.Title, payload.Content), true)
	}

	if payload.Code != 0 {
		m.PlaySound(sound.Rejected)
	}
	return clearNotificationAfter(notificationDuration)
}

func clearNotificationAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return model.ClearSystemNotificationMsg{}
	})
}
