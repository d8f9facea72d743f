// Package session 实现单局游戏的状态机：Idle → Running → Finished → (reset) → Idle
//
// Session 本身不加锁，调用方需要串行化所有操作。
package session

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/palemoky/shswrite/internal/apperrors"
	"github.com/palemoky/shswrite/internal/game/phrase"
	"github.com/palemoky/shswrite/internal/game/role"
)

// Phase 游戏阶段
type Phase int

const (
	Idle Phase = iota
	Running
	Finished
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// 特殊按键名称
const (
	KeyBackspace = "Backspace"
	KeySpace     = "Space"
	KeyEnter     = "Enter"
)

// ErrEmptyPhrase 文本来源返回了空文本
var ErrEmptyPhrase = errors.New("phrase provider returned an empty phrase")

// Roster 会话通过它按 ID 查询角色
type Roster interface {
	RoleOf(id string) (role.Role, bool)
	ClearRoles()
}

// KeyResult 按键处理结果
type KeyResult int

const (
	KeyIgnored  KeyResult = iota // 无效按键或 Backspace 时缓冲为空
	KeyAppended                  // 字符被追加
	KeyDeleted                   // 删除了最后一个字符
	KeyRejected                  // 字符与目标不匹配
)

// Round 一局的开始信息
type Round struct {
	ID        string
	Target    string
	StartedAt time.Time
}

// Completion 一局完成的结果
type Completion struct {
	Round
	FinishedAt     time.Time
	ElapsedSeconds float64
}

// View 会话的只读视图
type View struct {
	Phase          Phase
	RoundID        string
	Started        bool // 仅在 Running 阶段为 true
	TargetText     string
	TypedText      string
	ElapsedSeconds float64
}

// Session 游戏会话
type Session struct {
	roster  Roster
	phrases phrase.Provider
	policy  role.Policy
	clock   clockwork.Clock

	phase      Phase
	roundID    string
	target     []rune
	typed      []rune
	startedAt  time.Time
	finishedAt time.Time
}

// Option 会话选项
type Option func(*Session)

// WithClock 指定时钟，测试时使用 clockwork.NewFakeClock
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithPolicy 指定角色能力表
func WithPolicy(p role.Policy) Option {
	return func(s *Session) { s.policy = p }
}

// New 创建会话
func New(roster Roster, phrases phrase.Provider, opts ...Option) *Session {
	s := &Session{
		roster:  roster,
		phrases: phrases,
		policy:  role.DefaultPolicy(),
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Phase 当前阶段
func (s *Session) Phase() Phase { return s.phase }

// Policy 当前角色能力表
func (s *Session) Policy() role.Policy { return s.policy }

// Start 开始新一局
func (s *Session) Start(requester string) (Round, error) {
	r, ok := s.roster.RoleOf(requester)
	if !ok {
		return Round{}, apperrors.ErrUnknownPlayer
	}

	switch s.phase {
	case Running:
		return Round{}, apperrors.ErrGameAlreadyStarted
	case Finished:
		return Round{}, apperrors.ErrRoundFinished
	}

	if !r.IsSet() {
		return Round{}, apperrors.ErrNoRoleSelected
	}
	if !s.policy.CanStart(r) {
		return Round{}, apperrors.ErrRoleForbidden
	}

	target := []rune(phrase.Normalize(s.phrases.Next()))
	if len(target) == 0 {
		return Round{}, ErrEmptyPhrase
	}

	s.phase = Running
	s.roundID = uuid.NewString()
	s.target = target
	s.typed = s.typed[:0]
	s.startedAt = s.clock.Now()
	s.finishedAt = time.Time{}

	return s.round(), nil
}

// PressKey 处理按键；完成本局时返回 Completion
func (s *Session) PressKey(requester, key string) (KeyResult, *Completion, error) {
	r, ok := s.roster.RoleOf(requester)
	if !ok {
		return KeyIgnored, nil, apperrors.ErrUnknownPlayer
	}
	if !r.IsSet() {
		return KeyIgnored, nil, apperrors.ErrNoRoleSelected
	}
	if !s.policy.CanType(r) {
		return KeyIgnored, nil, apperrors.ErrRoleForbidden
	}
	if s.phase != Running {
		return KeyIgnored, nil, apperrors.ErrGameNotRunning
	}

	result := s.apply(key)
	if result != KeyAppended || !s.complete() {
		return result, nil, nil
	}

	s.phase = Finished
	s.finishedAt = s.clock.Now()
	return result, &Completion{
		Round:          s.round(),
		FinishedAt:     s.finishedAt,
		ElapsedSeconds: s.elapsed(),
	}, nil
}

func (s *Session) apply(key string) KeyResult {
	switch key {
	case KeyBackspace:
		if len(s.typed) == 0 {
			return KeyIgnored
		}
		s.typed = s.typed[:len(s.typed)-1]
		return KeyDeleted
	case KeySpace:
		return s.appendIfExpected(' ', false)
	case KeyEnter:
		return s.appendIfExpected('\n', false)
	}

	if utf8.RuneCountInString(key) != 1 {
		return KeyIgnored
	}
	ch, _ := utf8.DecodeRuneInString(strings.ToLowerSpecial(unicode.TurkishCase, key))
	if !phrase.IsTypeable(ch) {
		return KeyIgnored
	}
	return s.appendIfExpected(ch, true)
}

// appendIfExpected 仅当字符是下一个期望字符时追加；strict 为 false 时不匹配视为忽略
func (s *Session) appendIfExpected(ch rune, strict bool) KeyResult {
	if len(s.typed) < len(s.target) && s.target[len(s.typed)] == ch {
		s.typed = append(s.typed, ch)
		return KeyAppended
	}
	if strict {
		return KeyRejected
	}
	return KeyIgnored
}

func (s *Session) complete() bool {
	return len(s.typed) == len(s.target) && string(s.typed) == string(s.target)
}

// Reset 任何阶段都可重置，同时清空所有玩家的角色
func (s *Session) Reset(requester string) error {
	if _, ok := s.roster.RoleOf(requester); !ok {
		return apperrors.ErrUnknownPlayer
	}
	s.ResetRound()
	return nil
}

// ResetRound 无需请求者的重置，例如最后一名玩家离开时
func (s *Session) ResetRound() {
	s.phase = Idle
	s.roundID = ""
	s.target = nil
	s.typed = s.typed[:0]
	s.startedAt = time.Time{}
	s.finishedAt = time.Time{}
	s.roster.ClearRoles()
}

// View 当前状态视图
func (s *Session) View() View {
	return View{
		Phase:          s.phase,
		RoundID:        s.roundID,
		Started:        s.phase == Running,
		TargetText:     string(s.target),
		TypedText:      string(s.typed),
		ElapsedSeconds: s.elapsed(),
	}
}

func (s *Session) round() Round {
	return Round{
		ID:        s.roundID,
		Target:    string(s.target),
		StartedAt: s.startedAt,
	}
}

// elapsed 秒，保留到毫秒；Finished 后冻结
func (s *Session) elapsed() float64 {
	var d time.Duration
	switch s.phase {
	case Running:
		d = s.clock.Since(s.startedAt)
	case Finished:
		d = s.finishedAt.Sub(s.startedAt)
	default:
		return 0
	}
	return math.Round(d.Seconds()*1000) / 1000
}
