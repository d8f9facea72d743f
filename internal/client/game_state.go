package client

import (
	"cmp"
	"slices"
	"time"

	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/protocol"
)

// Player 快照中的一名玩家
type Player struct {
	ID string
	protocol.PlayerInfo
}

// GameState 客户端对局状态，每个 game_state 快照整体替换
type GameState struct {
	Players    []Player
	TargetText string
	TypedText  string
	Started    bool

	// 服务器给出的已用时间及收到快照的本地时间，用于本地计时
	elapsed    float64
	receivedAt time.Time

	// 最近一次 game_over 的用时
	TimeTaken float64
	Finished  bool
}

// NewGameState creates a new game state
func NewGameState() *GameState {
	return &GameState{}
}

// Apply 用快照替换当前状态，玩家按昵称排序
func (gs *GameState) Apply(p *protocol.GameStatePayload, now time.Time) {
	players := make([]Player, 0, len(p.PlayersInfo))
	for id, info := range p.PlayersInfo {
		players = append(players, Player{ID: id, PlayerInfo: info})
	}
	slices.SortFunc(players, func(a, b Player) int {
		return cmp.Or(cmp.Compare(a.Nickname, b.Nickname), cmp.Compare(a.ID, b.ID))
	})

	gs.Players = players
	gs.TargetText = p.TargetText
	gs.TypedText = p.TypedText
	gs.Started = p.GameStarted
	gs.elapsed = p.ElapsedTime
	gs.receivedAt = now

	switch {
	case gs.Started:
		gs.Finished = false
	case gs.TargetText == "":
		// 重置后回到空闲
		gs.Finished = false
		gs.TimeTaken = 0
	case gs.TypedText == gs.TargetText:
		gs.Finished = true
	}
}

// Finish 记录本局结果
func (gs *GameState) Finish(timeTaken float64) {
	gs.Finished = true
	gs.Started = false
	gs.TimeTaken = timeTaken
	gs.elapsed = timeTaken
}

// ElapsedAt 本地推算的已用时间（秒），进行中时按收到快照后的本地时间累加
func (gs *GameState) ElapsedAt(now time.Time) float64 {
	if !gs.Started || gs.receivedAt.IsZero() {
		return gs.elapsed
	}
	return gs.elapsed + now.Sub(gs.receivedAt).Seconds()
}

// Player 按 ID 查找玩家
func (gs *GameState) Player(id string) (Player, bool) {
	i := slices.IndexFunc(gs.Players, func(p Player) bool { return p.ID == id })
	if i < 0 {
		return Player{}, false
	}
	return gs.Players[i], true
}

// RoleOf 玩家角色，不存在时为 Unset
func (gs *GameState) RoleOf(id string) role.Role {
	p, _ := gs.Player(id)
	return p.Role
}

// NextRune 下一个期望输入的字符，没有时返回 false
func (gs *GameState) NextRune() (rune, bool) {
	target := []rune(gs.TargetText)
	typed := len([]rune(gs.TypedText))
	if typed >= len(target) {
		return 0, false
	}
	return target[typed], true
}

// Progress 已输入与目标的字符数
func (gs *GameState) Progress() (typed, total int) {
	return len([]rune(gs.TypedText)), len([]rune(gs.TargetText))
}

// Reset clears all game state
func (gs *GameState) Reset() {
	*gs = GameState{}
}
