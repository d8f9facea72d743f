package handler

import (
	"time"

	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/types"
)

// OnConnect 新连接：注册玩家、发送身份并广播
func (h *Handler) OnConnect(client types.ClientInterface) {
	h.sync.Join(client)
}

// OnDisconnect 连接断开：注销玩家并广播
func (h *Handler) OnDisconnect(client types.ClientInterface) {
	if id := client.GetID(); id != "" {
		h.sync.Leave(id)
	}
}

// handlePing 处理心跳消息
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		dropMalformed(client, msg, err)
		return
	}

	// 立即回复 pong
	client.SendMessage(protocol.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}
