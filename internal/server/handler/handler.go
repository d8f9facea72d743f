package handler

import (
	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/apperrors"
	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/server/broadcast"
	"github.com/palemoky/shswrite/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server types.ServerInterface
	Sync   *broadcast.Synchronizer
}

// Handler 消息处理器
type Handler struct {
	server   types.ServerInterface
	sync     *broadcast.Synchronizer
	handlers map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server: deps.Server,
		sync:   deps.Sync,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing: h.handlePing,

		// 玩家操作
		protocol.MsgRoleSelect:     h.handleRoleSelect,
		protocol.MsgChangeNickname: h.handleChangeNickname,
		protocol.MsgCursorMove:     h.handleCursorMove,

		// 游戏操作
		protocol.MsgKeyPress:  h.handleKeyPress,
		protocol.MsgStartGame: func(c types.ClientInterface, _ *protocol.Message) { h.handleStartGame(c) },
		protocol.MsgResetGame: func(c types.ClientInterface, _ *protocol.Message) { h.handleResetGame(c) },
	}
}

// Handle 处理消息；未知类型直接丢弃
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	log.Warn().Str("type", string(msg.Type)).Str("player", client.GetID()).Int("payload_bytes", len(msg.Payload)).Msg("⚠️ 未知消息类型")
}

// reply 把错误转换为提示消息，只发送给发起者
func (h *Handler) reply(client types.ClientInterface, err error) {
	if err == nil {
		return
	}

	gameErr, ok := apperrors.AsGameError(err)
	if !ok {
		log.Error().Err(err).Str("player", client.GetID()).Msg("❌ 处理消息失败")
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}
	if gameErr.Silent {
		log.Debug().Str("player", client.GetID()).Int("code", gameErr.Code).Msg("忽略请求")
		return
	}
	client.SendMessage(protocol.NewErrorMessageWithText(gameErr.Code, gameErr.Message))
}

// dropMalformed 记录并丢弃无法解析的消息
func dropMalformed(client types.ClientInterface, msg *protocol.Message, err error) {
	log.Debug().Err(err).Str("type", string(msg.Type)).Str("player", client.GetID()).Msg("丢弃格式错误的消息")
}
