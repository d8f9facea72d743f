// Package view provides UI rendering functions.
package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/palemoky/shswrite/internal/client"
	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/ui/common"
	"github.com/palemoky/shswrite/internal/ui/model"
)

const maxNameLen = 16

// CreateViewRenderer creates a view renderer function that can be injected into OnlineModel.
func CreateViewRenderer() func(model.Model) string {
	return func(m model.Model) string {
		switch m.Phase() {
		case model.PhaseLobby:
			return LobbyView(m)
		case model.PhasePlaying:
			return GameView(m)
		case model.PhaseGameOver:
			return GameOverView(m)
		default:
			return "Unknown phase"
		}
	}
}

// LobbyView 空闲阶段：选择角色、修改昵称、开始游戏
func LobbyView(m model.Model) string {
	width := m.Width()
	var sb strings.Builder

	sb.WriteString(renderHeader(m))
	sb.WriteString("\n\n")

	box := common.BoxStyle.Render(renderPlayers(m.State(), m.PlayerID()))
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, box))
	sb.WriteString("\n")

	if m.Mode() == model.ModeNickname {
		sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, common.PromptStyle.Render(m.Input().View())))
		sb.WriteString("\n")
	}

	sb.WriteString(renderFooter(m))
	return sb.String()
}

// GameView 进行中：按角色显示目标文本
func GameView(m model.Model) string {
	width := m.Width()
	state := m.State()
	var sb strings.Builder

	sb.WriteString(renderHeader(m))
	sb.WriteString("\n\n")

	typed, total := state.Progress()
	status := fmt.Sprintf("⏱ %.1fs   进度 %d/%d", state.ElapsedAt(m.Now()), typed, total)
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, status))
	sb.WriteString("\n\n")

	phrase := common.BoxStyle.Render(RenderPhrase(state, state.RoleOf(m.PlayerID()), m.ObfuscatedTarget()))
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, phrase))
	sb.WriteString("\n")

	box := common.BoxStyle.Render(renderPlayers(state, m.PlayerID()))
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, box))
	sb.WriteString("\n")

	sb.WriteString(renderFooter(m))
	return sb.String()
}

// GameOverView 本局完成
func GameOverView(m model.Model) string {
	width := m.Width()
	state := m.State()
	var sb strings.Builder

	sb.WriteString(renderHeader(m))
	sb.WriteString("\n\n")

	result := common.SuccessStyle.Render(fmt.Sprintf("🎉 完成！用时 %.2f 秒", state.TimeTaken))
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, result))
	sb.WriteString("\n\n")

	target := common.BoxStyle.Render(common.TypedStyle.Render(state.TargetText))
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, target))
	sb.WriteString("\n")

	box := common.BoxStyle.Render(renderPlayers(state, m.PlayerID()))
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, box))
	sb.WriteString("\n")

	sb.WriteString(renderFooter(m))
	return sb.String()
}

// RenderPhrase 按角色渲染目标文本与已输入文本
func RenderPhrase(state *client.GameState, r role.Role, obfuscated string) string {
	typed := state.TypedText

	switch r {
	case role.Blind:
		return common.HintStyle.Render("你看不见目标文本") + "\n" +
			common.TypedStyle.Render(common.Mask(typed)) + common.CursorIcon
	case role.Deaf:
		return common.PendingStyle.Render(obfuscated) + "\n" +
			common.TypedStyle.Render(typed) + common.CursorIcon
	case role.Mute:
		rest := strings.TrimPrefix(state.TargetText, typed)
		return common.TypedStyle.Render(typed) + common.PendingStyle.Render(rest)
	default:
		return common.HintStyle.Render("请先选择角色")
	}
}

func renderHeader(m model.Model) string {
	title := common.TitleStyle("⌨️  三人协作打字")
	me := fmt.Sprintf("%s %s", common.TruncateName(m.PlayerName(), maxNameLen),
		common.RoleStyle(m.State().RoleOf(m.PlayerID())).Render(common.RoleLabel(m.State().RoleOf(m.PlayerID()))))
	latency := common.HintStyle.Render(fmt.Sprintf("%dms", m.Latency()))

	header := lipgloss.JoinVertical(lipgloss.Center, title, me+"  "+latency)
	return lipgloss.PlaceHorizontal(m.Width(), lipgloss.Center, header)
}

func renderPlayers(state *client.GameState, selfID string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("玩家 (%d)\n", len(state.Players)))
	for _, p := range state.Players {
		prefix := "  "
		if p.ID == selfID {
			prefix = common.SelfIcon
		}
		style := common.RoleStyle(p.Role)
		sb.WriteString(fmt.Sprintf("%s %s %s\n", prefix,
			style.Render("["+common.RoleInitial(p.Role)+"]"),
			common.TruncateName(p.Nickname, maxNameLen)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderFooter(m model.Model) string {
	var lines []string
	if n := m.GetCurrentNotification(); n != nil {
		style := common.NoticeStyle
		if n.Type == model.NotifyError || n.Type == model.NotifyRateLimit {
			style = common.ErrorStyle
		}
		lines = append(lines, style.Render(n.Message))
	}
	lines = append(lines, common.HintStyle.Render(helpText(m)))

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("\n")
		sb.WriteString(lipgloss.PlaceHorizontal(m.Width(), lipgloss.Center, line))
	}
	return sb.String()
}

func helpText(m model.Model) string {
	switch m.Mode() {
	case model.ModeTyping:
		return "打字中 · ESC 返回命令模式"
	case model.ModeNickname:
		return "Enter 确认 · ESC 取消"
	}

	switch m.Phase() {
	case model.PhasePlaying:
		return "T/Enter 开始打字 · 1/2/3 选择角色 · R 重置 · Q 退出"
	case model.PhaseGameOver:
		return "R 重置 · 1/2/3 选择角色 · N 修改昵称 · Q 退出"
	default:
		return "1 看不见 · 2 听不见 · 3 说不出 · N 修改昵称 · S 开始 · R 重置 · Q 退出"
	}
}
