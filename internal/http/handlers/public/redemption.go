package public

import (
	"strings"

	"github.com/dujiao-next/redemption/internal/constants"
	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/i18n"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/gin-gonic/gin"
)

// PreviewRedemptionRequest 兑换预检请求
type PreviewRedemptionRequest struct {
	Code string `json:"code" binding:"required"`
}

// RedeemRequest 兑换请求
type RedeemRequest struct {
	Code     string       `json:"code" binding:"required"`
	OrderID  *uint        `json:"order_id"`
	Amount   models.Money `json:"amount"`
	Currency string       `json:"currency"`
}

// PreviewView 预检结果
type PreviewView struct {
	Allowed bool                   `json:"allowed"`
	Reason  constants.DenialReason `json:"reason,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// PreviewRedemption 只读判定当前身份能否兑换该码
func (h *Handler) PreviewRedemption(c *gin.Context) {
	var req PreviewRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	decision, err := h.RedemptionCoordinator.Preview(c.Request.Context(), strings.TrimSpace(req.Code), optionalUserID(c))
	if err != nil {
		respondFetchError(c, err)
		return
	}
	view := PreviewView{Allowed: decision.Allowed, Reason: decision.Reason}
	if !decision.Allowed {
		view.Message = i18n.T(i18n.ResolveLocale(c), "denial."+string(decision.Reason))
	}
	response.Success(c, view)
}

// Redeem 兑换码值；业务拒绝以 success=false 与原因返回
func (h *Handler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.RedemptionCoordinator.Redeem(c.Request.Context(), service.RedeemInput{
		Code:       strings.TrimSpace(req.Code),
		RedeemerID: optionalUserID(c),
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   req.Currency,
	})
	if err != nil {
		respondRedeemError(c, err)
		return
	}
	if !result.Success {
		handlershared.RespondDenied(c, result.Reason)
		return
	}
	response.Success(c, result)
}

// ListMyRedemptions 当前用户的兑换记录
func (h *Handler) ListMyRedemptions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	records, total, err := h.RedemptionCoordinator.ListRecords(repository.RedemptionListFilter{
		Page:       page,
		PageSize:   pageSize,
		RedeemerID: uid,
		Status:     strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}
