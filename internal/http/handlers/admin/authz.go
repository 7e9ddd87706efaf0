package admin

import (
	"net/url"
	"strings"

	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"

	"github.com/gin-gonic/gin"
)

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 获取当前管理员权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, gin.H{
		"admin_id": adminID,
		"username": currentUsername(c),
		"is_super": h.AuthzService.IsSuperAdmin(adminID),
		"roles":    roles,
	})
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}
	requestLog(c).Infow("admin_authz_policy_granted",
		"operator", currentUsername(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// GetAuthzAdminRoles 获取指定管理员的角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

// SetAuthzAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}
	requestLog(c).Infow("admin_authz_roles_set",
		"operator", currentUsername(c),
		"target_admin_id", adminID,
		"roles", req.Roles,
	)
	response.Success(c, gin.H{"admin_id": adminID, "roles": req.Roles})
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
