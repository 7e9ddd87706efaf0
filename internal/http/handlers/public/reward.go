package public

import (
	"strings"

	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/gin-gonic/gin"
)

// ApplyRewardRequest 使用奖励请求
type ApplyRewardRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// ListMyRewards 当前用户的奖励
func (h *Handler) ListMyRewards(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	rewards, total, err := h.RewardManager.List(c.Request.Context(), repository.RewardListFilter{
		Page:          page,
		PageSize:      pageSize,
		BeneficiaryID: uid,
		Status:        strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, rewards, response.BuildPagination(page, pageSize, total))
}

// loadOwnReward 读取奖励并校验归属，他人的奖励按不存在处理。
// lazyExpire 为 false 时不触发到期落库，留给后续状态变更自行判定。
func (h *Handler) loadOwnReward(c *gin.Context, lazyExpire bool) (*models.ReferralReward, bool) {
	uid, ok := getUserID(c)
	if !ok {
		return nil, false
	}
	rewardID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	var (
		reward *models.ReferralReward
		err    error
	)
	if lazyExpire {
		reward, err = h.RewardManager.Get(c.Request.Context(), rewardID)
	} else {
		reward, err = h.RewardManager.GetStored(rewardID)
	}
	if err == nil && reward != nil && reward.BeneficiaryID != uid {
		err = service.ErrRewardNotFound
	}
	if err != nil {
		respondFetchError(c, err)
		return nil, false
	}
	return reward, true
}

// GetMyReward 奖励详情
func (h *Handler) GetMyReward(c *gin.Context) {
	reward, ok := h.loadOwnReward(c, true)
	if !ok {
		return
	}
	response.Success(c, reward)
}

// ApplyMyReward 将已激活奖励用于订单
func (h *Handler) ApplyMyReward(c *gin.Context) {
	reward, ok := h.loadOwnReward(c, false)
	if !ok {
		return
	}
	var req ApplyRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.RewardManager.Apply(c.Request.Context(), reward.ID, req.OrderID)
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
