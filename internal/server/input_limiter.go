package server

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/palemoky/shswrite/internal/protocol"
)

// InputVerdict 入站消息的限流结果
type InputVerdict int

const (
	// InputAccepted 交给处理器
	InputAccepted InputVerdict = iota
	// InputThrottled 光标更新超出配额，静默丢弃，下一次更新会带上最新位置
	InputThrottled
	// InputRejected 指令超出配额，丢弃并提示客户端
	InputRejected
)

// InputLimiter 按连接限制入站消息速率
//
// cursor_move 与其余指令各用一个令牌桶，光标洪泛不会挤占按键、开始和重置的配额。
type InputLimiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	clients map[string]*inputBuckets

	cursorPerSecond  int
	commandPerSecond int
}

type inputBuckets struct {
	cursor   *rate.Limiter
	command  *rate.Limiter
	overruns int
}

// NewInputLimiter 创建入站消息限流器
func NewInputLimiter(cursorPerSecond, commandPerSecond int) *InputLimiter {
	return newInputLimiter(clockwork.NewRealClock(), cursorPerSecond, commandPerSecond)
}

func newInputLimiter(clock clockwork.Clock, cursorPerSecond, commandPerSecond int) *InputLimiter {
	return &InputLimiter{
		clock:            clock,
		clients:          make(map[string]*inputBuckets),
		cursorPerSecond:  cursorPerSecond,
		commandPerSecond: commandPerSecond,
	}
}

// Allow 按消息类型消耗对应桶的配额
func (l *InputLimiter) Allow(clientID string, msgType protocol.MessageType) InputVerdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.clients[clientID]
	if !ok {
		b = &inputBuckets{
			cursor:  rate.NewLimiter(rate.Limit(l.cursorPerSecond), l.cursorPerSecond),
			command: rate.NewLimiter(rate.Limit(l.commandPerSecond), l.commandPerSecond),
		}
		l.clients[clientID] = b
	}

	now := l.clock.Now()
	if msgType == protocol.MsgCursorMove {
		if b.cursor.AllowN(now, 1) {
			return InputAccepted
		}
		return InputThrottled
	}

	if b.command.AllowN(now, 1) {
		return InputAccepted
	}
	b.overruns++
	return InputRejected
}

// Overruns 指令超限次数
func (l *InputLimiter) Overruns(clientID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.clients[clientID]; ok {
		return b.overruns
	}
	return 0
}

// RemoveClient 移除连接的记录
func (l *InputLimiter) RemoveClient(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, clientID)
}
