package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCodeRequest 创建兑换码请求
type CreateCodeRequest struct {
	Code              string `json:"code" binding:"required"`
	Kind              string `json:"kind" binding:"required"`
	Name              string `json:"name"`
	OwnerID           *uint  `json:"owner_id"`
	ValidFrom         string `json:"valid_from"`
	ValidUntil        string `json:"valid_until"`
	GlobalUsageLimit  *int   `json:"global_usage_limit"`
	PerUserUsageLimit *int   `json:"per_user_usage_limit"`
	IsActive          *bool  `json:"is_active"`
}

// UpdateCodeRequest 更新兑换码请求，未传的上限视为不限制
type UpdateCodeRequest struct {
	Name              string `json:"name"`
	ValidFrom         string `json:"valid_from"`
	ValidUntil        string `json:"valid_until"`
	GlobalUsageLimit  *int   `json:"global_usage_limit"`
	PerUserUsageLimit *int   `json:"per_user_usage_limit"`
	IsActive          *bool  `json:"is_active"`
}

// SetCodeActiveRequest 启停请求
type SetCodeActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListCodes 兑换码列表
func (h *Handler) ListCodes(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	ownerID, ok := handlershared.ParseUintQuery(c, "owner_id")
	if !ok {
		return
	}
	filter := repository.CodeListFilter{
		Page:     page,
		PageSize: pageSize,
		Kind:     strings.TrimSpace(c.Query("kind")),
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
		OwnerID:  ownerID,
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		filter.IsActive = &active
	}
	codes, total, err := h.CodeAdminService.List(filter)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, codes, response.BuildPagination(page, pageSize, total))
}

// GetCode 兑换码详情
func (h *Handler) GetCode(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	code, err := h.CodeAdminService.Get(id)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.Success(c, code)
}

// CreateCode 创建兑换码
func (h *Handler) CreateCode(c *gin.Context) {
	var req CreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	validFrom, err := parseTimeNullable(req.ValidFrom)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	validUntil, err := parseTimeNullable(req.ValidUntil)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	code, err := h.CodeAdminService.Create(c.Request.Context(), service.CreateCodeInput{
		Code:              req.Code,
		Kind:              req.Kind,
		Name:              req.Name,
		OwnerID:           req.OwnerID,
		ValidFrom:         validFrom,
		ValidUntil:        validUntil,
		GlobalUsageLimit:  req.GlobalUsageLimit,
		PerUserUsageLimit: req.PerUserUsageLimit,
		IsActive:          req.IsActive,
	})
	if err != nil {
		respondSaveError(c, err)
		return
	}
	requestLog(c).Infow("admin_code_created", "admin", currentUsername(c), "code_id", code.ID)
	response.Success(c, code)
}

// UpdateCode 更新兑换码
func (h *Handler) UpdateCode(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	validFrom, err := parseTimeNullable(req.ValidFrom)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	validUntil, err := parseTimeNullable(req.ValidUntil)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	code, err := h.CodeAdminService.Update(c.Request.Context(), id, service.UpdateCodeInput{
		Name:              req.Name,
		ValidFrom:         validFrom,
		ValidUntil:        validUntil,
		GlobalUsageLimit:  req.GlobalUsageLimit,
		PerUserUsageLimit: req.PerUserUsageLimit,
		IsActive:          req.IsActive,
	})
	if err != nil {
		respondSaveError(c, err)
		return
	}
	response.Success(c, code)
}

// SetCodeActive 启用或停用兑换码
func (h *Handler) SetCodeActive(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetCodeActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	code, err := h.CodeAdminService.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondSaveError(c, err)
		return
	}
	requestLog(c).Infow("admin_code_active_changed", "admin", currentUsername(c), "code_id", id, "is_active", *req.IsActive)
	response.Success(c, code)
}

// DeleteCode 删除兑换码
func (h *Handler) DeleteCode(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.CodeAdminService.Delete(c.Request.Context(), id); err != nil {
		respondSaveError(c, err)
		return
	}
	requestLog(c).Infow("admin_code_deleted", "admin", currentUsername(c), "code_id", id)
	response.Success(c, nil)
}

// ListCodeRedemptions 指定兑换码的兑换记录
func (h *Handler) ListCodeRedemptions(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	records, total, err := h.RedemptionCoordinator.ListRecords(repository.RedemptionListFilter{
		Page:     page,
		PageSize: pageSize,
		CodeID:   id,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}
