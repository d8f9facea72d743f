package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeUnknownPlayer     = 2001
	ErrCodeRoleForbidden     = 3001
	ErrCodeNoRoleSelected    = 3002
	ErrCodeInvalidNickname   = 3003
	ErrCodeGameStarted       = 4001 // 游戏已开始
	ErrCodeRoundFinished     = 4002 // 本局已结束，需要重置
	ErrCodeGameNotRunning    = 4003
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeUnknownPlayer:     "玩家不存在",
	ErrCodeRoleForbidden:     "当前角色不能执行该操作",
	ErrCodeNoRoleSelected:    "请先选择角色（看不见 / 听不见 / 说不出）",
	ErrCodeInvalidNickname:   "昵称不能为空",
	ErrCodeGameStarted:       "游戏已开始",
	ErrCodeRoundFinished:     "本局已结束，请先重置游戏",
	ErrCodeGameNotRunning:    "游戏尚未开始",
	ErrCodeServerMaintenance: "服务器维护中",
}

// 提示框标题
const (
	TitleWarning  = "警告"
	TitleNotice   = "提示"
	TitleGameOver = "游戏结束"
)
