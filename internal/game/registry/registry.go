// Package registry 管理在线玩家：身份、昵称、角色与光标位置
package registry

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/palemoky/shswrite/internal/apperrors"
	"github.com/palemoky/shswrite/internal/game/role"
)

// DefaultNicknamePrefix 默认昵称前缀
const DefaultNicknamePrefix = "Player-"

// Player 在线玩家
type Player struct {
	ID       string
	Nickname string
	Role     role.Role
	X        float64
	Y        float64
}

// Registry 玩家注册表
type Registry struct {
	players     map[string]*Player
	seq         int
	maxNickname int // 0 表示不限制

	mu sync.RWMutex
}

// Option 注册表选项
type Option func(*Registry)

// WithMaxNicknameLength 限制昵称长度（按字符计）
func WithMaxNicknameLength(n int) Option {
	return func(r *Registry) {
		r.maxNickname = max(n, 0)
	}
}

// New 创建注册表
func New(opts ...Option) *Registry {
	r := &Registry{players: make(map[string]*Player)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register 注册新玩家，分配唯一 ID 和当前唯一的默认昵称
func (r *Registry) Register() Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &Player{
		ID:       uuid.NewString(),
		Nickname: r.nextNickname(),
	}
	r.players[p.ID] = p
	return *p
}

func (r *Registry) nextNickname() string {
	for {
		r.seq++
		name := fmt.Sprintf("%s%d", DefaultNicknamePrefix, r.seq)
		if !r.nicknameTaken(name) {
			return name
		}
	}
}

func (r *Registry) nicknameTaken(name string) bool {
	for _, p := range r.players {
		if p.Nickname == name {
			return true
		}
	}
	return false
}

// Unregister 移除玩家，返回玩家是否存在
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	return true
}

// SetRole 设置角色，不要求角色唯一
func (r *Registry) SetRole(id string, ro role.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return apperrors.ErrUnknownPlayer
	}
	p.Role = ro
	return nil
}

// SetNickname 修改昵称，去除首尾空白后不能为空
func (r *Registry) SetNickname(id, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return apperrors.ErrInvalidNickname
	}
	if r.maxNickname > 0 && utf8.RuneCountInString(nickname) > r.maxNickname {
		return apperrors.ErrNicknameTooLong
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return apperrors.ErrUnknownPlayer
	}
	p.Nickname = nickname
	return nil
}

// ErrInvalidCursor 坐标不是有限数
var ErrInvalidCursor = errors.New("cursor coordinates must be finite")

// SetCursor 更新光标位置，接受任意有限坐标
func (r *Registry) SetCursor(id string, x, y float64) error {
	if !isFinite(x) || !isFinite(y) {
		return ErrInvalidCursor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return apperrors.ErrUnknownPlayer
	}
	p.X, p.Y = x, y
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// RoleOf 查询玩家角色
func (r *Registry) RoleOf(id string) (role.Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[id]
	if !ok {
		return role.Unset, false
	}
	return p.Role, true
}

// ClearRoles 清空所有玩家的角色
func (r *Registry) ClearRoles() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		p.Role = role.Unset
	}
}

// Get 获取玩家副本
func (r *Registry) Get(id string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Len 在线玩家数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Snapshot 返回所有玩家的只读副本，按 ID 索引
func (r *Registry) Snapshot() map[string]Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		out[id] = *p
	}
	return out
}
