package role

import "fmt"

// Policy 角色权限表：哪些角色可以打字、哪些角色可以开始游戏
type Policy struct {
	typists  map[Role]bool
	starters map[Role]bool
}

// DefaultPolicy 默认策略：只有看不见的玩家打字，看不见的玩家不能开始游戏
func DefaultPolicy() Policy {
	return NewPolicy([]Role{Blind}, []Role{Deaf, Mute})
}

// NewPolicy 创建权限表
func NewPolicy(typists, starters []Role) Policy {
	p := Policy{
		typists:  make(map[Role]bool, len(typists)),
		starters: make(map[Role]bool, len(starters)),
	}
	for _, r := range typists {
		if r.IsSet() {
			p.typists[r] = true
		}
	}
	for _, r := range starters {
		if r.IsSet() {
			p.starters[r] = true
		}
	}
	return p
}

// ParsePolicy 从角色名列表创建权限表
func ParsePolicy(typists, starters []string) (Policy, error) {
	t, err := parseAll(typists)
	if err != nil {
		return Policy{}, fmt.Errorf("typist roles: %w", err)
	}
	s, err := parseAll(starters)
	if err != nil {
		return Policy{}, fmt.Errorf("starter roles: %w", err)
	}
	return NewPolicy(t, s), nil
}

func parseAll(names []string) ([]Role, error) {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		r, err := Parse(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// CanType 该角色是否可以修改已输入文本
func (p Policy) CanType(r Role) bool {
	return p.typists[r]
}

// CanStart 该角色是否可以开始游戏
func (p Policy) CanStart(r Role) bool {
	return p.starters[r]
}

// Typists 返回可以打字的角色
func (p Policy) Typists() []Role {
	return p.filter(p.typists)
}

// Starters 返回可以开始游戏的角色
func (p Policy) Starters() []Role {
	return p.filter(p.starters)
}

func (p Policy) filter(set map[Role]bool) []Role {
	roles := make([]Role, 0, len(set))
	for _, r := range All() {
		if set[r] {
			roles = append(roles, r)
		}
	}
	return roles
}
