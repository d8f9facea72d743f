// Package model defines the core types and interfaces for the UI.
package model

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/palemoky/shswrite/internal/client"
	"github.com/palemoky/shswrite/internal/protocol"
)

// GamePhase represents the current game phase.
type GamePhase int

const (
	PhaseConnecting GamePhase = iota
	PhaseLobby                // 空闲：选择角色、修改昵称
	PhasePlaying
	PhaseGameOver
)

// InputMode 键盘输入模式
type InputMode int

const (
	ModeCommand  InputMode = iota // 命令模式：单键操作
	ModeTyping                    // 打字模式：按键发送给服务器
	ModeNickname                  // 输入昵称
)

// NotificationType represents types of system notifications.
type NotificationType int

const (
	NotifyError            NotificationType = iota // 错误信息（临时）
	NotifyRateLimit                                // 限频提示（临时）
	NotifyReconnecting                             // 重连中（持久）
	NotifyReconnectSuccess                         // 重连成功（临时）
	NotifyMaintenance                              // 维护通知（持久）
	NotifyMessageBox                               // 服务器提示（临时）
)

// SystemNotification represents a system notification.
type SystemNotification struct {
	Message   string
	Type      NotificationType
	Temporary bool // 是否为临时通知（3秒后自动消失）
}

// --- Tea Messages ---

// ServerMessage wraps a protocol message for tea.Msg.
type ServerMessage struct {
	Msg *protocol.Message
}

// ConnectedMsg indicates successful connection.
type ConnectedMsg struct{}

// ConnectionErrorMsg indicates a connection error.
type ConnectionErrorMsg struct {
	Err error
}

// ReconnectSuccessMsg indicates successful reconnection.
type ReconnectSuccessMsg struct{}

// DisconnectedMsg 连接已关闭且不再重连
type DisconnectedMsg struct{}

// ClearReconnectMsg clears reconnection message.
type ClearReconnectMsg struct{}

// ClearSystemNotificationMsg clears system notification.
type ClearSystemNotificationMsg struct{}

// TickMsg 本地计时刷新
type TickMsg time.Time

// --- Model Interface ---

// Sender 发送玩家操作，由 transport.Client 实现
type Sender interface {
	SelectRole(role string) error
	ChangeNickname(nickname string) error
	MoveCursor(x, y float64) error
	PressKey(key string) error
	StartGame() error
	ResetGame() error
}

// Model is the main interface for OnlineModel, used by handler/view/input packages.
type Model interface {
	// Phase management
	Phase() GamePhase
	SetPhase(GamePhase)
	Mode() InputMode
	SetMode(InputMode)

	// Player info
	PlayerID() string
	PlayerName() string
	SetPlayerInfo(id, name string)

	// Server access
	Sender() Sender
	Latency() int64

	// State
	State() *client.GameState
	ObfuscatedTarget() string
	Now() time.Time

	// UI components
	Input() *textinput.Model

	// Notification management
	SetNotification(notifyType NotificationType, message string, temporary bool)
	ClearNotification(notifyType NotificationType)
	GetCurrentNotification() *SystemNotification

	// Sound
	PlaySound(name string)

	// Dimensions
	Width() int
	Height() int
}
