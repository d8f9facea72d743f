package common

import (
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/palemoky/shswrite/internal/game/phrase"
	"github.com/palemoky/shswrite/internal/game/role"
)

// TruncateName truncates a player name to the specified maximum length.
func TruncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) > maxLen {
		return string(runes[:maxLen-1]) + "…"
	}
	return name
}

var roleLabels = map[role.Role]string{
	role.Blind: "看不见",
	role.Deaf:  "听不见",
	role.Mute:  "说不出",
}

// RoleLabel 角色的中文名称
func RoleLabel(r role.Role) string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return "未选择"
}

// RoleInitial 玩家列表中显示的角色缩写
func RoleInitial(r role.Role) string {
	if !r.IsSet() {
		return "-"
	}
	return strings.ToUpper(r.String()[:1])
}

var alphabet = []rune(phrase.Alphabet)

// Obfuscate 将字母替换为随机字母，保留长度、空白和标点
func Obfuscate(text string, rng *rand.Rand) string {
	var sb strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) {
			sb.WriteRune(alphabet[rng.IntN(len(alphabet))])
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Mask 用占位符遮住除空白外的所有字符
func Mask(text string) string {
	var sb strings.Builder
	for _, r := range text {
		if unicode.IsSpace(r) {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune('•')
	}
	return sb.String()
}
