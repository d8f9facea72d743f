// Package role 定义玩家角色及角色权限策略
package role

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role 玩家角色
type Role int

const (
	Unset Role = iota // 未选择
	Blind             // 看不见：看不到目标文本
	Deaf              // 听不见：目标文本被打乱显示
	Mute              // 说不出：不能口述
)

// 旧版客户端使用的角色名
var legacyNames = map[string]Role{
	"goremeden":  Blind,
	"duymadan":   Deaf,
	"konusmadan": Mute,
}

// All 返回所有可选角色
func All() []Role {
	return []Role{Blind, Deaf, Mute}
}

// String 返回角色在协议中的名称
func (r Role) String() string {
	switch r {
	case Blind:
		return "blind"
	case Deaf:
		return "deaf"
	case Mute:
		return "mute"
	case Unset:
		return ""
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// IsSet 是否已选择角色
func (r Role) IsSet() bool {
	switch r {
	case Blind, Deaf, Mute:
		return true
	case Unset:
		return false
	default:
		return false
	}
}

// Parse 解析角色名，支持旧版名称
func Parse(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "blind":
		return Blind, nil
	case "deaf":
		return Deaf, nil
	case "mute":
		return Mute, nil
	}
	if r, ok := legacyNames[name]; ok {
		return r, nil
	}
	return Unset, fmt.Errorf("unknown role %q", s)
}

// MarshalJSON 未选择角色时编码为 null
func (r Role) MarshalJSON() ([]byte, error) {
	if !r.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

// UnmarshalJSON 解析 JSON 中的角色，null 或空串为未选择
func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Unset
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*r = Unset
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
