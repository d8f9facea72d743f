package types

import (
	"context"
	"time"

	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
}

// ClientInterface 定义客户端接口
type ClientInterface interface {
	GetID() string
	SetID(id string)
	// SendMessage 不得阻塞，发送队列满时由实现方断开连接
	SendMessage(msg *protocol.Message)
	Close()
}

// RoundPlayer 一局中的玩家
type RoundPlayer struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	Role     role.Role `json:"role"`
}

// RoundStarted 一局开始事件
type RoundStarted struct {
	RoundID   string        `json:"round_id"`
	Phrase    string        `json:"phrase"`
	StartedAt time.Time     `json:"started_at"`
	Players   []RoundPlayer `json:"players"`
}

// RoundResult 一局完成的结果
type RoundResult struct {
	RoundID        string        `json:"round_id"`
	Phrase         string        `json:"phrase"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Players        []RoundPlayer `json:"players"`
}

// RoundObserver 接收对局事件（存储、消息队列等），在状态锁之外异步调用，同一观察者按发生顺序收到事件
type RoundObserver interface {
	RoundStarted(ctx context.Context, ev RoundStarted) error
	RoundFinished(ctx context.Context, res RoundResult) error
}
