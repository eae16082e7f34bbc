package domain

// Role 会话角色
type Role string

const (
	RoleElder     Role = "elder"
	RoleCaregiver Role = "caregiver"
)

// Session 显式传递的会话上下文（替代全局"当前用户"）
// ElderID 决定数据归属；ActorID 为实际操作人（老人本人或家属）
type Session struct {
	ElderID string
	ActorID string
	Role    Role
}

// Validate 校验会话
func (s Session) Validate() error {
	if s.ElderID == "" {
		return Invalid("elder_id", "required")
	}
	switch s.Role {
	case "", RoleElder, RoleCaregiver:
	default:
		return Invalid("role", "must be elder or caregiver")
	}
	return nil
}

// Actor 返回操作人 ID，未指定时视为老人本人
func (s Session) Actor() string {
	if s.ActorID != "" {
		return s.ActorID
	}
	return s.ElderID
}
