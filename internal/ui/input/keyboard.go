// Package input handles keyboard and mouse input processing.
package input

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/sound"
	"github.com/palemoky/shswrite/internal/ui/model"
)

// 特殊按键在协议中的名称
const (
	KeyBackspace = "Backspace"
	KeySpace     = "Space"
	KeyEnter     = "Enter"
)

// roleKeys 命令模式下选择角色的按键
var roleKeys = map[string]role.Role{
	"1": role.Blind,
	"2": role.Deaf,
	"3": role.Mute,
}

// HandleKeyPress handles keyboard input and returns whether it was handled.
func HandleKeyPress(m model.Model, msg tea.KeyMsg) (bool, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return true, tea.Quit
	}

	switch m.Mode() {
	case model.ModeNickname:
		return handleNicknameKey(m, msg)
	case model.ModeTyping:
		return true, handleTypingKey(m, msg)
	default:
		return true, handleCommandKey(m, msg)
	}
}

func handleCommandKey(m model.Model, msg tea.KeyMsg) tea.Cmd {
	key := strings.ToLower(msg.String())
	if key == "q" {
		return tea.Quit
	}
	if m.Phase() == model.PhaseConnecting {
		return nil
	}

	if r, ok := roleKeys[key]; ok {
		return send(m, m.Sender().SelectRole(r.String()))
	}

	switch key {
	case "s":
		return send(m, m.Sender().StartGame())
	case "r":
		return send(m, m.Sender().ResetGame())
	case "n":
		m.SetMode(model.ModeNickname)
	case "t", "enter":
		if m.Phase() == model.PhasePlaying {
			m.SetMode(model.ModeTyping)
		}
	}
	return nil
}

func handleNicknameKey(m model.Model, msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.SetMode(model.ModeCommand)
		return true, nil
	case tea.KeyEnter:
		nickname := m.Input().Value()
		m.SetMode(model.ModeCommand)
		return true, send(m, m.Sender().ChangeNickname(nickname))
	}
	// 其余按键交给输入框
	return false, nil
}

func handleTypingKey(m model.Model, msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.SetMode(model.ModeCommand)
		return nil
	case tea.KeyBackspace:
		return send(m, m.Sender().PressKey(KeyBackspace))
	case tea.KeySpace:
		return pressRune(m, ' ', KeySpace)
	case tea.KeyEnter:
		return pressRune(m, '\n', KeyEnter)
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if cmd := pressRune(m, r, string(r)); cmd != nil {
				return cmd
			}
		}
	}
	return nil
}

// pressRune 发送按键，预计会被拒绝时播放提示音
func pressRune(m model.Model, r rune, key string) tea.Cmd {
	if next, ok := m.State().NextRune(); !ok || next != r {
		m.PlaySound(sound.Rejected)
	}
	return send(m, m.Sender().PressKey(key))
}

// send 发送失败时显示临时错误
func send(m model.Model, err error) tea.Cmd {
	if err == nil {
		return nil
	}
	m.SetNotification(model.NotifyError, fmt.Sprintf("⚠️ 发送消息失败: %v", err), true)
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return model.ClearSystemNotificationMsg{}
	})
}
