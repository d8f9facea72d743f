package apperrors

import (
	"errors"

	"github.com/palemoky/shswrite/internal/protocol"
)

// GameError 游戏错误（注册表和会话共享）
type GameError struct {
	Code    int
	Message string
	// Silent 为 true 时不向客户端发送提示，例如断线竞争导致的未知玩家
	Silent bool
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrUnknownPlayer      = &GameError{Code: protocol.ErrCodeUnknownPlayer, Message: "玩家不存在", Silent: true}
	ErrRoleForbidden      = &GameError{Code: protocol.ErrCodeRoleForbidden, Message: "当前角色不能执行该操作"}
	ErrNoRoleSelected     = &GameError{Code: protocol.ErrCodeNoRoleSelected, Message: "请先选择角色"}
	ErrInvalidNickname    = &GameError{Code: protocol.ErrCodeInvalidNickname, Message: "昵称不能为空"}
	ErrNicknameTooLong    = &GameError{Code: protocol.ErrCodeInvalidNickname, Message: "昵称过长"}
	ErrGameAlreadyStarted = &GameError{Code: protocol.ErrCodeGameStarted, Message: "游戏已开始"}
	ErrRoundFinished      = &GameError{Code: protocol.ErrCodeRoundFinished, Message: "本局已结束，请先重置游戏"}
	ErrGameNotRunning     = &GameError{Code: protocol.ErrCodeGameNotRunning, Message: "游戏尚未开始", Silent: true}
)

// AsGameError 提取错误链中的 GameError
func AsGameError(err error) (*GameError, bool) {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr, true
	}
	return nil, false
}
