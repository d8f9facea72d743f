package handler

import (
	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/types"
)

// handleRoleSelect 选择角色
func (h *Handler) handleRoleSelect(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.RoleSelectPayload](msg)
	if err != nil {
		dropMalformed(client, msg, err)
		return
	}
	r, err := role.Parse(payload.Role)
	if err != nil || !r.IsSet() {
		dropMalformed(client, msg, err)
		return
	}

	h.reply(client, h.sync.SelectRole(client.GetID(), r))
}

// handleChangeNickname 修改昵称
func (h *Handler) handleChangeNickname(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.ChangeNicknamePayload](msg)
	if err != nil {
		dropMalformed(client, msg, err)
		return
	}

	h.reply(client, h.sync.ChangeNickname(client.GetID(), payload.Nickname))
}

// handleCursorMove 更新光标；非有限坐标视为格式错误
func (h *Handler) handleCursorMove(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.CursorMovePayload](msg)
	if err != nil {
		dropMalformed(client, msg, err)
		return
	}

	if err := h.sync.MoveCursor(client.GetID(), payload.X, payload.Y); err != nil {
		dropMalformed(client, msg, err)
	}
}

// handleKeyPress 按键
func (h *Handler) handleKeyPress(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.KeyPressPayload](msg)
	if err != nil {
		dropMalformed(client, msg, err)
		return
	}

	h.reply(client, h.sync.PressKey(client.GetID(), payload.Key))
}

// handleStartGame 开始游戏，维护模式下拒绝
func (h *Handler) handleStartGame(client types.ClientInterface) {
	if h.server != nil && h.server.IsMaintenanceMode() {
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeServerMaintenance))
		return
	}

	h.reply(client, h.sync.Start(client.GetID()))
}

// handleResetGame 重置游戏
func (h *Handler) handleResetGame(client types.ClientInterface) {
	h.reply(client, h.sync.Reset(client.GetID()))
}
