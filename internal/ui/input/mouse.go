package input

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/shswrite/internal/ui/model"
)

// CursorTracker 将鼠标移动转为 cursor_move，按最小间隔限流
type CursorTracker struct {
	interval time.Duration
	lastSent time.Time
	lastX    int
	lastY    int
	sent     bool
}

// NewCursorTracker creates a CursorTracker.
func NewCursorTracker(interval time.Duration) *CursorTracker {
	return &CursorTracker{interval: interval}
}

// Handle 处理鼠标事件，坐标为终端单元格位置
func (t *CursorTracker) Handle(m model.Model, msg tea.MouseMsg) tea.Cmd {
	if m.Phase() == model.PhaseConnecting || msg.Action != tea.MouseActionMotion {
		return nil
	}
	if t.sent && msg.X == t.lastX && msg.Y == t.lastY {
		return nil
	}

	now := m.Now()
	if t.sent && now.Sub(t.lastSent) < t.interval {
		return nil
	}

	t.lastSent = now
	t.lastX, t.lastY = msg.X, msg.Y
	t.sent = true
	return send(m, m.Sender().MoveCursor(float64(msg.X), float64(msg.Y)))
}
