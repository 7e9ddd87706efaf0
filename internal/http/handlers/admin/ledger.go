package admin

import (
	"strings"

	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/repository"

	"github.com/gin-gonic/gin"
)

// VoidRedemptionRequest 作废兑换记录请求
type VoidRedemptionRequest struct {
	Reason string `json:"reason"`
}

// AttachOrderRequest 绑定订单请求
type AttachOrderRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// ListRedemptions 兑换台账
func (h *Handler) ListRedemptions(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	codeID, ok := handlershared.ParseUintQuery(c, "code_id")
	if !ok {
		return
	}
	redeemerID, ok := handlershared.ParseUintQuery(c, "redeemer_id")
	if !ok {
		return
	}
	records, total, err := h.RedemptionCoordinator.ListRecords(repository.RedemptionListFilter{
		Page:       page,
		PageSize:   pageSize,
		CodeID:     codeID,
		RedeemerID: redeemerID,
		Status:     strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}

// GetRedemption 兑换记录详情
func (h *Handler) GetRedemption(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	record, err := h.RedemptionCoordinator.GetRecord(id)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.Success(c, record)
}

func bindVoidReason(c *gin.Context) (string, bool) {
	var req VoidRedemptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return "", false
		}
	}
	return strings.TrimSpace(req.Reason), true
}

// CancelRedemption 作废兑换记录并回退计数
func (h *Handler) CancelRedemption(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	reason, ok := bindVoidReason(c)
	if !ok {
		return
	}
	record, err := h.RedemptionCoordinator.Cancel(c.Request.Context(), id, reason)
	if err != nil {
		respondSaveError(c, err)
		return
	}
	requestLog(c).Infow("admin_redemption_cancelled", "admin", currentUsername(c), "record_id", id)
	response.Success(c, record)
}

// RefundRedemption 订单退款后回退兑换
func (h *Handler) RefundRedemption(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	reason, ok := bindVoidReason(c)
	if !ok {
		return
	}
	record, err := h.RedemptionCoordinator.Refund(c.Request.Context(), id, reason)
	if err != nil {
		respondSaveError(c, err)
		return
	}
	requestLog(c).Infow("admin_redemption_refunded", "admin", currentUsername(c), "record_id", id)
	response.Success(c, record)
}

// AttachRedemptionOrder 为兑换记录绑定订单
func (h *Handler) AttachRedemptionOrder(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req AttachOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	record, err := h.RedemptionCoordinator.AttachOrder(c.Request.Context(), id, req.OrderID)
	if err != nil {
		respondSaveError(c, err)
		return
	}
	response.Success(c, record)
}
