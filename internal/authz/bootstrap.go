package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "code_manager",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/codes", Action: "*"},
				{Object: "/admin/codes/:id", Action: "*"},
				{Object: "/admin/codes/:id/active", Action: "PATCH"},
			},
		},
		{
			Role:     "ledger_operator",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/redemptions/:id/cancel", Action: "POST"},
				{Object: "/admin/redemptions/:id/refund", Action: "POST"},
				{Object: "/admin/redemptions/:id/order", Action: "POST"},
				{Object: "/admin/referrals/:id/confirm", Action: "POST"},
				{Object: "/admin/referrals/:id/invalidate", Action: "POST"},
				{Object: "/admin/rewards/:id/activate", Action: "POST"},
				{Object: "/admin/rewards/:id/cancel", Action: "POST"},
				{Object: "/admin/rewards/sweep", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，重复执行不会产生重复策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return err
			}
		}
	}
	return nil
}
