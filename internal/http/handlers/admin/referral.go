package admin

import (
	"strings"

	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/gin-gonic/gin"
)

// ReasonRequest 附带原因的操作请求
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ListReferrals 邀请关系列表
func (h *Handler) ListReferrals(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	filter := repository.ReferralListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	var ok bool
	if filter.ReferrerID, ok = handlershared.ParseUintQuery(c, "referrer_id"); !ok {
		return
	}
	if filter.ReferredID, ok = handlershared.ParseUintQuery(c, "referred_id"); !ok {
		return
	}
	if filter.CodeID, ok = handlershared.ParseUintQuery(c, "code_id"); !ok {
		return
	}
	referrals, total, err := h.RewardManager.ListReferrals(filter)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, referrals, response.BuildPagination(page, pageSize, total))
}

// ConfirmReferral 确认邀请合格并激活待确认奖励
func (h *Handler) ConfirmReferral(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	referral, rewards, err := h.RewardManager.ConfirmReferral(c.Request.Context(), id)
	if err != nil {
		respondSaveError(c, err)
		return
	}
	requestLog(c).Infow("admin_referral_confirmed", "admin", currentUsername(c), "referral_id", id)
	response.Success(c, gin.H{
		"referral": referral,
		"rewards":  rewards,
	})
}

// InvalidateReferral 作废邀请关系
func (h *Handler) InvalidateReferral(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
	}
	referral, err := h.RewardManager.InvalidateReferral(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondSaveError(c, err)
		return
	}
	requestLog(c).Infow("admin_referral_invalidated", "admin", currentUsername(c), "referral_id", id)
	response.Success(c, referral)
}

// ListRewards 奖励列表
func (h *Handler) ListRewards(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	filter := repository.RewardListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	var ok bool
	if filter.BeneficiaryID, ok = handlershared.ParseUintQuery(c, "beneficiary_id"); !ok {
		return
	}
	if filter.ReferralID, ok = handlershared.ParseUintQuery(c, "referral_id"); !ok {
		return
	}
	rewards, total, err := h.RewardManager.List(c.Request.Context(), filter)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, rewards, response.BuildPagination(page, pageSize, total))
}

// GetReward 奖励详情
func (h *Handler) GetReward(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	reward, err := h.RewardManager.Get(c.Request.Context(), id)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.Success(c, reward)
}

func respondRewardResult(c *gin.Context, result *service.RewardResult) {
	if !result.Success {
		handlershared.RespondDenied(c, result.Reason)
		return
	}
	response.Success(c, result)
}

// ActivateReward 手动激活奖励
func (h *Handler) ActivateReward(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.RewardManager.Activate(c.Request.Context(), id)
	if err != nil {
		respondSaveError(c, err)
		return
	}
	respondRewardResult(c, result)
}

// CancelReward 取消奖励
func (h *Handler) CancelReward(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
	}
	result, err := h.RewardManager.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondSaveError(c, err)
		return
	}
	if result.Success {
		requestLog(c).Infow("admin_reward_cancelled", "admin", currentUsername(c), "reward_id", id)
	}
	respondRewardResult(c, result)
}

// SweepRewards 立即执行一轮到期扫描
func (h *Handler) SweepRewards(c *gin.Context) {
	expired, err := h.RewardManager.ExpireDue(c.Request.Context())
	if err != nil {
		respondSaveError(c, err)
		return
	}
	response.Success(c, gin.H{"expired": expired})
}
