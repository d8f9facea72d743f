// Package broadcast 串行化所有状态变更，并把每次变更后的快照按顺序推送给所有连接
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/game/registry"
	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/game/session"
	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/types"
)

const (
	defaultObserverTimeout = 5 * time.Second
	// 每个观察者的事件队列长度
	observerQueueSize = 64
)

// Synchronizer 注册表 + 会话的唯一互斥域
//
// 每个操作在锁内完成：变更 → 生成快照 → 投递到每个连接的发送队列。
// 连接的 SendMessage 只入队不阻塞，因此所有连接看到的快照顺序与变更顺序一致。
type Synchronizer struct {
	registry *registry.Registry
	session  *session.Session
	clients  map[string]types.ClientInterface

	observers       []types.RoundObserver
	queues          []chan roundEvent
	observerTimeout time.Duration
	autoReset       bool
	pending         sync.WaitGroup
	stopped         bool

	mu sync.Mutex
}

// roundEvent 投递给单个观察者的一次调用
type roundEvent func(context.Context, types.RoundObserver) error

// Option 同步器选项
type Option func(*Synchronizer)

// WithObservers 注册对局事件观察者
func WithObservers(observers ...types.RoundObserver) Option {
	return func(s *Synchronizer) {
		s.observers = append(s.observers, observers...)
	}
}

// WithObserverTimeout 单次观察者调用的超时
func WithObserverTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.observerTimeout = d
		}
	}
}

// WithAutoReset 最后一名玩家离开时是否自动重置
func WithAutoReset(enabled bool) Option {
	return func(s *Synchronizer) { s.autoReset = enabled }
}

// New 创建同步器
func New(reg *registry.Registry, sess *session.Session, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		registry:        reg,
		session:         sess,
		clients:         make(map[string]types.ClientInterface),
		observerTimeout: defaultObserverTimeout,
		autoReset:       true,
	}
	for _, opt := range opts {
		opt(s)
	}

	// 每个观察者一个队列和一个消费协程，同一观察者按变更顺序收到事件
	for _, o := range s.observers {
		q := make(chan roundEvent, observerQueueSize)
		s.queues = append(s.queues, q)
		go s.drain(o, q)
	}
	return s
}

// Join 注册新连接：分配身份、单播 player_id，然后广播快照（包括新玩家自己）
func (s *Synchronizer) Join(client types.ClientInterface) registry.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.registry.Register()
	client.SetID(p.ID)
	s.clients[p.ID] = client

	client.SendMessage(protocol.MustNewMessage(protocol.MsgPlayerID, protocol.PlayerIDPayload{
		ID:       p.ID,
		Nickname: p.Nickname,
	}))
	s.broadcastStateLocked()

	log.Info().Str("player", p.ID).Str("nickname", p.Nickname).Int("online", len(s.clients)).Msg("👤 玩家加入")
	return p
}

// Leave 注销连接并广播；重复调用无副作用
func (s *Synchronizer) Leave(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.clients, id)
	if !s.registry.Unregister(id) {
		return
	}

	if s.autoReset && s.registry.Len() == 0 && s.session.Phase() != session.Idle {
		s.session.ResetRound()
		log.Info().Msg("🔄 所有玩家已离开，自动重置游戏")
	}
	s.broadcastStateLocked()

	log.Info().Str("player", id).Int("online", len(s.clients)).Msg("👋 玩家离开")
}

// SelectRole 选择角色
func (s *Synchronizer) SelectRole(id string, r role.Role) error {
	return s.mutate(func() error {
		return s.registry.SetRole(id, r)
	})
}

// ChangeNickname 修改昵称
func (s *Synchronizer) ChangeNickname(id, nickname string) error {
	return s.mutate(func() error {
		return s.registry.SetNickname(id, nickname)
	})
}

// MoveCursor 更新光标
func (s *Synchronizer) MoveCursor(id string, x, y float64) error {
	return s.mutate(func() error {
		return s.registry.SetCursor(id, x, y)
	})
}

// Start 开始新一局
func (s *Synchronizer) Start(id string) error {
	var started *types.RoundStarted

	err := s.mutate(func() error {
		round, err := s.session.Start(id)
		if err != nil {
			return err
		}
		started = &types.RoundStarted{
			RoundID:   round.ID,
			Phrase:    round.Target,
			StartedAt: round.StartedAt,
			Players:   s.roundPlayersLocked(),
		}
		ev := *started
		s.notifyLocked(func(ctx context.Context, o types.RoundObserver) error {
			return o.RoundStarted(ctx, ev)
		})
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("round", started.RoundID).Str("by", id).Str("phrase", started.Phrase).Msg("🎮 游戏开始")
	return nil
}

// PressKey 处理按键；完成本局时在快照之后广播一次 game_over
func (s *Synchronizer) PressKey(id, key string) error {
	var result *types.RoundResult

	s.mu.Lock()
	_, done, err := s.session.PressKey(id, key)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.broadcastStateLocked()
	if done != nil {
		s.broadcastLocked(protocol.MustNewMessage(protocol.MsgGameOver, protocol.GameOverPayload{
			TimeTaken: done.ElapsedSeconds,
		}))
		result = &types.RoundResult{
			RoundID:        done.ID,
			Phrase:         done.Target,
			ElapsedSeconds: done.ElapsedSeconds,
			StartedAt:      done.StartedAt,
			FinishedAt:     done.FinishedAt,
			Players:        s.roundPlayersLocked(),
		}
		res := *result
		s.notifyLocked(func(ctx context.Context, o types.RoundObserver) error {
			return o.RoundFinished(ctx, res)
		})
	}
	s.mu.Unlock()

	if result != nil {
		log.Info().Str("round", result.RoundID).Float64("elapsed", result.ElapsedSeconds).Msg("🏁 本局完成")
	}
	return nil
}

// Reset 重置游戏并清空所有角色
func (s *Synchronizer) Reset(id string) error {
	err := s.mutate(func() error {
		return s.session.Reset(id)
	})
	if err == nil {
		log.Info().Str("by", id).Msg("🔄 游戏已重置")
	}
	return err
}

// Snapshot 当前状态快照
func (s *Synchronizer) Snapshot() protocol.GameStatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Phase 当前游戏阶段
func (s *Synchronizer) Phase() session.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Phase()
}

// Online 在线连接数
func (s *Synchronizer) Online() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast 广播任意消息，例如停机通知
func (s *Synchronizer) Broadcast(msg *protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(msg)
}

// CloseAll 关闭所有连接
func (s *Synchronizer) CloseAll() {
	s.mu.Lock()
	clients := make([]types.ClientInterface, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

// Wait 等待已入队的观察者事件处理完成
func (s *Synchronizer) Wait() {
	s.pending.Wait()
}

// Close 停止观察者队列，之后的对局事件不再投递
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	for _, q := range s.queues {
		close(q)
	}
}

// mutate 在锁内执行变更，成功后广播快照；失败时状态不变，不广播
func (s *Synchronizer) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	s.broadcastStateLocked()
	return nil
}

func (s *Synchronizer) broadcastStateLocked() {
	s.broadcastLocked(protocol.MustNewMessage(protocol.MsgGameState, s.snapshotLocked()))
}

func (s *Synchronizer) broadcastLocked(msg *protocol.Message) {
	for _, c := range s.clients {
		c.SendMessage(msg)
	}
}

func (s *Synchronizer) snapshotLocked() protocol.GameStatePayload {
	players := s.registry.Snapshot()
	info := make(map[string]protocol.PlayerInfo, len(players))
	for id, p := range players {
		info[id] = protocol.PlayerInfo{
			X:        p.X,
			Y:        p.Y,
			Nickname: p.Nickname,
			Role:     p.Role,
		}
	}

	v := s.session.View()
	return protocol.GameStatePayload{
		PlayersInfo: info,
		TargetText:  v.TargetText,
		TypedText:   v.TypedText,
		ElapsedTime: v.ElapsedSeconds,
		GameStarted: v.Started,
	}
}

func (s *Synchronizer) roundPlayersLocked() []types.RoundPlayer {
	players := s.registry.Snapshot()
	out := make([]types.RoundPlayer, 0, len(players))
	for _, p := range players {
		out = append(out, types.RoundPlayer{ID: p.ID, Nickname: p.Nickname, Role: p.Role})
	}
	return out
}

// notifyLocked 在锁内把事件放入每个观察者的队列，调用本身在消费协程中进行
func (s *Synchronizer) notifyLocked(ev roundEvent) {
	if s.stopped {
		return
	}
	for _, q := range s.queues {
		s.pending.Add(1)
		select {
		case q <- ev:
		default:
			s.pending.Done()
			log.Warn().Msg("⚠️ 对局事件队列已满，丢弃事件")
		}
	}
}

// drain 按顺序处理单个观察者的事件，每个事件单独计算超时
func (s *Synchronizer) drain(o types.RoundObserver, q <-chan roundEvent) {
	for ev := range q {
		ctx, cancel := context.WithTimeout(context.Background(), s.observerTimeout)
		if err := ev(ctx, o); err != nil {
			log.Warn().Err(err).Msg("⚠️ 对局事件处理失败")
		}
		cancel()
		s.pending.Done()
	}
}
