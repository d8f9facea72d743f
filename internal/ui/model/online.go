package model

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/palemoky/shswrite/internal/client"
	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/sound"
	"github.com/palemoky/shswrite/internal/transport"
	"github.com/palemoky/shswrite/internal/ui/common"
)

const (
	tickInterval         = 100 * time.Millisecond
	notificationDuration = 3 * time.Second
)

// OnlineModel is the main model for the typing game client.
type OnlineModel struct {
	client *transport.Client
	sender Sender
	clock  clockwork.Clock
	phase  GamePhase
	mode   InputMode
	error  string

	// Player info
	playerID   string
	playerName string

	// Game state
	state         *client.GameState
	rng           *rand.Rand
	obfuscated    string
	obfuscatedFor string

	// Connection events from transport callbacks
	connChan chan tea.Msg

	// System notifications
	notifications map[NotificationType]*SystemNotification

	// Audio
	soundManager *sound.SoundManager

	// UI components
	input  *textinput.Model
	width  int
	height int

	// View renderer (injected to break circular import)
	viewRenderer func(Model) string

	// Key handler (injected to break circular import)
	keyHandler func(Model, tea.KeyMsg) (bool, tea.Cmd)

	// Mouse handler (injected to break circular import)
	mouseHandler func(Model, tea.MouseMsg) tea.Cmd

	// Server message handler (injected to break circular import)
	serverMessageHandler func(Model, *protocol.Message) tea.Cmd
}

// Option configures an OnlineModel.
type Option func(*OnlineModel)

// WithSoundManager 使用指定的音效管理器
func WithSoundManager(sm *sound.SoundManager) Option {
	return func(m *OnlineModel) { m.soundManager = sm }
}

// WithClock 替换本地计时使用的时钟
func WithClock(c clockwork.Clock) Option {
	return func(m *OnlineModel) { m.clock = c }
}

// WithSender 替换操作的发送方
func WithSender(s Sender) Option {
	return func(m *OnlineModel) { m.sender = s }
}

// NewOnlineModel creates a new OnlineModel.
func NewOnlineModel(c *transport.Client, opts ...Option) *OnlineModel {
	ti := textinput.New()
	ti.Placeholder = "输入新昵称"
	ti.CharLimit = 32
	ti.Width = 30

	m := &OnlineModel{
		client:        c,
		clock:         clockwork.NewRealClock(),
		phase:         PhaseConnecting,
		state:         client.NewGameState(),
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		connChan:      make(chan tea.Msg, 10),
		notifications: make(map[NotificationType]*SystemNotification),
		input:         &ti,
	}
	if c != nil {
		m.sender = c
	}
	for _, opt := range opts {
		opt(m)
	}

	if c != nil {
		connChan := m.connChan
		c.OnReconnect = func() {
			select {
			case connChan <- ReconnectSuccessMsg{}:
			default:
			}
		}
	}

	return m
}

func (m *OnlineModel) Init() tea.Cmd {
	return tea.Batch(
		m.connectToServer(),
		m.listenForConn(),
		m.tick(),
	)
}

func (m *OnlineModel) connectToServer() tea.Cmd {
	return func() tea.Msg {
		if err := m.client.Connect(); err != nil {
			return ConnectionErrorMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

func (m *OnlineModel) listenForConn() tea.Cmd {
	return func() tea.Msg {
		return <-m.connChan
	}
}

// listenForMessages 接收通道在重连后仍然有效，因此整个生命周期只需一个监听
func (m *OnlineModel) listenForMessages() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.client.Receive():
			return ServerMessage{Msg: msg}
		case <-m.client.Done():
			return DisconnectedMsg{}
		}
	}
}

func (m *OnlineModel) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// --- Model interface implementation ---

func (m *OnlineModel) Phase() GamePhase         { return m.phase }
func (m *OnlineModel) SetPhase(phase GamePhase) { m.phase = phase }
func (m *OnlineModel) Mode() InputMode          { return m.mode }
func (m *OnlineModel) PlayerID() string         { return m.playerID }
func (m *OnlineModel) PlayerName() string       { return m.playerName }
func (m *OnlineModel) SetPlayerInfo(id, name string) {
	m.playerID = id
	m.playerName = name
}
func (m *OnlineModel) Sender() Sender            { return m.sender }
func (m *OnlineModel) State() *client.GameState  { return m.state }
func (m *OnlineModel) Now() time.Time            { return m.clock.Now() }
func (m *OnlineModel) Input() *textinput.Model   { return m.input }
func (m *OnlineModel) Width() int                { return m.width }
func (m *OnlineModel) Height() int               { return m.height }
func (m *OnlineModel) Error() string             { return m.error }
func (m *OnlineModel) SetSize(width, height int) { m.width, m.height = width, height }

// SetMode 切换输入模式，昵称输入框只在昵称模式下获得焦点
func (m *OnlineModel) SetMode(mode InputMode) {
	m.mode = mode
	if mode == ModeNickname {
		m.input.Reset()
		m.input.Focus()
		return
	}
	m.input.Blur()
}

// Latency returns the current latency.
func (m *OnlineModel) Latency() int64 {
	if m.client == nil {
		return 0
	}
	return m.client.GetLatency()
}

// ObfuscatedTarget 打乱后的目标文本，同一目标只打乱一次
func (m *OnlineModel) ObfuscatedTarget() string {
	target := m.state.TargetText
	if target != m.obfuscatedFor {
		m.obfuscated = common.Obfuscate(target, m.rng)
		m.obfuscatedFor = target
	}
	return m.obfuscated
}

func (m *OnlineModel) PlaySound(name string) {
	if m.soundManager != nil {
		m.soundManager.Play(name)
	}
}

func (m *OnlineModel) SetNotification(notifyType NotificationType, message string, temporary bool) {
	m.notifications[notifyType] = &SystemNotification{
		Message:   message,
		Type:      notifyType,
		Temporary: temporary,
	}
}

func (m *OnlineModel) ClearNotification(notifyType NotificationType) {
	delete(m.notifications, notifyType)
}

func (m *OnlineModel) GetCurrentNotification() *SystemNotification {
	priorityOrder := []NotificationType{
		NotifyError,
		NotifyRateLimit,
		NotifyReconnecting,
		NotifyReconnectSuccess,
		NotifyMaintenance,
		NotifyMessageBox,
	}

	for _, notifyType := range priorityOrder {
		if notification, exists := m.notifications[notifyType]; exists {
			return notification
		}
	}
	return nil
}

// Update handles tea messages.
func (m *OnlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case ConnectedMsg:
		m.phase = PhaseLobby
		m.error = ""
		m.client.StartHeartbeat()
		cmds = append(cmds, m.listenForMessages())

	case ConnectionErrorMsg:
		m.error = fmt.Sprintf("无法连接到服务器: %v\n\n按 q 退出", msg.Err)
		m.phase = PhaseConnecting

	case ReconnectSuccessMsg:
		// 服务器不保留会话，新的 player_id 和快照随后到达
		m.SetMode(ModeCommand)
		m.ClearNotification(NotifyReconnecting)
		m.ClearNotification(NotifyError)
		m.SetNotification(NotifyReconnectSuccess, "✅ 重连成功！", true)
		cmds = append(cmds, tea.Tick(notificationDuration, func(time.Time) tea.Msg {
			return ClearReconnectMsg{}
		}))
		cmds = append(cmds, m.listenForConn())

	case ClearReconnectMsg:
		m.ClearNotification(NotifyReconnectSuccess)

	case DisconnectedMsg:
		m.phase = PhaseConnecting
		m.error = "与服务器的连接已断开\n\n按 q 退出"
		m.ClearNotification(NotifyReconnecting)

	case ClearSystemNotificationMsg:
		m.ClearNotification(NotifyError)
		m.ClearNotification(NotifyRateLimit)
		m.ClearNotification(NotifyMessageBox)

	case TickMsg:
		if m.client != nil && m.client.IsReconnecting() {
			m.SetNotification(NotifyReconnecting, "🔄 正在重连...", false)
		}
		cmds = append(cmds, m.tick())

	case ServerMessage:
		if m.serverMessageHandler != nil {
			if cmd := m.serverMessageHandler(m, msg.Msg); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		if m.client != nil {
			cmds = append(cmds, m.listenForMessages())
		}

	case tea.KeyMsg:
		if m.keyHandler != nil {
			handled, keyCmd := m.keyHandler(m, msg)
			if keyCmd != nil {
				cmds = append(cmds, keyCmd)
			}
			if handled {
				return m, tea.Batch(cmds...)
			}
		}
		if m.mode == ModeNickname {
			newInput, cmd := m.input.Update(msg)
			*m.input = newInput
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		if m.mouseHandler != nil {
			if cmd := m.mouseHandler(m, msg); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the model.
func (m *OnlineModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch {
	case m.phase == PhaseConnecting:
		content = m.connectingView()
	case m.viewRenderer != nil:
		content = m.viewRenderer(m)
	default:
		content = "View renderer not initialized"
	}

	return common.DocStyle.Render(content)
}

// SetViewRenderer sets the view rendering function.
func (m *OnlineModel) SetViewRenderer(fn func(Model) string) {
	m.viewRenderer = fn
}

// SetKeyHandler sets the keyboard event handler function.
func (m *OnlineModel) SetKeyHandler(fn func(Model, tea.KeyMsg) (bool, tea.Cmd)) {
	m.keyHandler = fn
}

// SetMouseHandler sets the mouse event handler function.
func (m *OnlineModel) SetMouseHandler(fn func(Model, tea.MouseMsg) tea.Cmd) {
	m.mouseHandler = fn
}

// SetServerMessageHandler sets the server message handler function.
func (m *OnlineModel) SetServerMessageHandler(fn func(Model, *protocol.Message) tea.Cmd) {
	m.serverMessageHandler = fn
}

func (m *OnlineModel) connectingView() string {
	var sb string
	if m.error != "" {
		sb = common.ErrorStyle.Render(m.error)
	} else {
		sb = "正在连接服务器..."
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb)
}
