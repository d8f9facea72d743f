// Package common provides shared styles and utilities for the UI.
package common

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/palemoky/shswrite/internal/game/role"
)

// Icon constants
const (
	SelfIcon   = "👉"
	CursorIcon = "▌"
)

// Lipgloss Styles
var (
	DocStyle     = lipgloss.NewStyle().Margin(1, 2)
	TitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true).Render
	BoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	PromptStyle  = lipgloss.NewStyle().MarginTop(1)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	NoticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	HintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	TypedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

var roleStyles = map[role.Role]lipgloss.Style{
	role.Blind: lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
	role.Deaf:  lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
	role.Mute:  lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
}

// RoleStyle 角色对应的颜色，未选择角色时为灰色
func RoleStyle(r role.Role) lipgloss.Style {
	if s, ok := roleStyles[r]; ok {
		return s
	}
	return HintStyle
}
