package transport

import (
	"time"

	"github.com/palemoky/shswrite/internal/protocol"
)

// --- 便捷方法 ---

// SelectRole 选择角色
func (c *Client) SelectRole(role string) error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgRoleSelect, protocol.RoleSelectPayload{
		Role: role,
	}))
}

// ChangeNickname 修改昵称
func (c *Client) ChangeNickname(nickname string) error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgChangeNickname, protocol.ChangeNicknamePayload{
		Nickname: nickname,
	}))
}

// MoveCursor 移动光标
func (c *Client) MoveCursor(x, y float64) error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgCursorMove, protocol.CursorMovePayload{
		X: x,
		Y: y,
	}))
}

// PressKey 按键：单个字符，或 Backspace / Space / Enter
func (c *Client) PressKey(key string) error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgKeyPress, protocol.KeyPressPayload{
		Key: key,
	}))
}

// StartGame 开始游戏
func (c *Client) StartGame() error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgStartGame, nil))
}

// ResetGame 重置游戏
func (c *Client) ResetGame() error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgResetGame, nil))
}

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}
