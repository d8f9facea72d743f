package sound

// 声音名称
const (
	KeyPress = "keypress" // 按键被接受
	Rejected = "rejected" // 按键被拒绝
	GameOver = "gameover" // 本局完成
)
