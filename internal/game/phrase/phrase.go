// Package phrase 提供每局的目标文本
package phrase

import (
	"math/rand/v2"
	"strings"
	"unicode"
)

// Alphabet 虚拟键盘上的全部字母（空格另计）
const Alphabet = "abcçdefgğhıijklmnoöpqrsştuüvwxyz"

// DefaultPhrases 内置文本
var DefaultPhrases = []string{
	"Teknoloji, hayatımızı kolaylaştıran birçok yenilik sunar.",
	"Doğa yürüyüşleri, zihni dinlendirmek için harika bir yoldur.",
	"Kitap okumak, farklı dünyalara açılan bir kapıdır.",
	"Yaz mevsimi, güneşli günler ve uzun akşamlar demektir.",
	"Birlikte çalışmak, hedeflere ulaşmanın en etkili yoludur.",
	"Hayatta karşımıza çıkan zorluklar bizi daha güçlü yapar.",
	"Her yeni gün, yeni bir başlangıç için fırsattır.",
	"Sanat, insan ruhunun derinliklerini yansıtan bir aynadır.",
}

// Provider 目标文本来源
type Provider interface {
	Next() string
}

// IsTypeable 字符能否在虚拟键盘上输入
func IsTypeable(r rune) bool {
	return r == ' ' || strings.ContainsRune(Alphabet, r)
}

// Normalize 转为小写（土耳其语规则），去掉字母表以外的字符并压缩空白
func Normalize(s string) string {
	lower := strings.ToLowerSpecial(unicode.TurkishCase, s)

	var b strings.Builder
	space := false
	for _, r := range lower {
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if !IsTypeable(r) {
			continue
		}
		if space {
			b.WriteRune(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fixed 始终返回同一文本
type Fixed string

func (f Fixed) Next() string { return string(f) }

// RandomProvider 从文本列表中随机选取
type RandomProvider struct {
	phrases []string
}

// NewRandomProvider 创建随机文本来源，列表为空时使用内置文本
func NewRandomProvider(phrases []string) *RandomProvider {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := Normalize(p); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		for _, p := range DefaultPhrases {
			normalized = append(normalized, Normalize(p))
		}
	}
	return &RandomProvider{phrases: normalized}
}

// Next 随机返回一条文本
func (p *RandomProvider) Next() string {
	return p.phrases[rand.IntN(len(p.phrases))]
}

// Phrases 返回规范化后的全部文本
func (p *RandomProvider) Phrases() []string {
	out := make([]string, len(p.phrases))
	copy(out, p.phrases)
	return out
}
