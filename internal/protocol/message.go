package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	MsgPing MessageType = "ping" // 心跳 ping

	MsgRoleSelect     MessageType = "role_select"     // 选择角色
	MsgChangeNickname MessageType = "change_nickname" // 修改昵称
	MsgCursorMove     MessageType = "cursor_move"     // 光标移动
	MsgKeyPress       MessageType = "key_press"       // 按键
	MsgStartGame      MessageType = "start_game"      // 开始游戏
	MsgResetGame      MessageType = "reset_game"      // 重置游戏
)

// 服务端 → 客户端 消息类型
const (
	MsgPong       MessageType = "pong"        // 心跳 pong
	MsgPlayerID   MessageType = "player_id"   // 连接成功，分配身份（单播）
	MsgGameState  MessageType = "game_state"  // 完整状态快照（广播）
	MsgGameOver   MessageType = "game_over"   // 本局完成（广播）
	MsgMessageBox MessageType = "message_box" // 提示消息（单播）
)

// IsClientMessage 是否为客户端可发送的消息类型
func (t MessageType) IsClientMessage() bool {
	switch t {
	case MsgPing, MsgRoleSelect, MsgChangeNickname, MsgCursorMove, MsgKeyPress, MsgStartGame, MsgResetGame:
		return true
	default:
		return false
	}
}
