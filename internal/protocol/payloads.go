package protocol

import (
	"encoding/json"
	"errors"

	"github.com/palemoky/shswrite/internal/game/role"
)

// ErrMissingField 请求缺少必填字段
var ErrMissingField = errors.New("payload is missing a required field")

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// RoleSelectPayload 选择角色请求
type RoleSelectPayload struct {
	Role string `json:"role"`
}

// ChangeNicknamePayload 修改昵称请求
type ChangeNicknamePayload struct {
	Nickname string `json:"nickname"`
}

// UnmarshalJSON nickname 字段必须存在，可以为空串
func (p *ChangeNicknamePayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nickname *string `json:"nickname"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Nickname == nil {
		return ErrMissingField
	}
	p.Nickname = *raw.Nickname
	return nil
}

// CursorMovePayload 光标移动，坐标相对于共享的游戏区域原点
type CursorMovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UnmarshalJSON x 与 y 都必须存在
func (p *CursorMovePayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.X == nil || raw.Y == nil {
		return ErrMissingField
	}
	p.X, p.Y = *raw.X, *raw.Y
	return nil
}

// KeyPressPayload 按键请求
type KeyPressPayload struct {
	Key string `json:"key"` // 单个字符，或 Backspace / Space / Enter
}

// UnmarshalJSON key 必须存在且非空
func (p *KeyPressPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Key == "" {
		return ErrMissingField
	}
	p.Key = raw.Key
	return nil
}

// --- 服务端响应 Payloads ---

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"server_timestamp"` // 服务器时间戳（毫秒）
}

// PlayerIDPayload 身份分配
type PlayerIDPayload struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// PlayerInfo 快照中的玩家信息
type PlayerInfo struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Nickname string    `json:"nickname"`
	Role     role.Role `json:"role"`
}

// GameStatePayload 完整状态快照
type GameStatePayload struct {
	PlayersInfo map[string]PlayerInfo `json:"players_info"`
	TargetText  string                `json:"target_text"`
	TypedText   string                `json:"typed_text"`
	ElapsedTime float64               `json:"elapsed_time"` // 秒
	GameStarted bool                  `json:"game_started"`
}

// GameOverPayload 本局完成
type GameOverPayload struct {
	TimeTaken float64 `json:"time_taken"` // 秒
}

// MessageBoxPayload 提示消息
type MessageBoxPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Code    int    `json:"code,omitempty"`
}
