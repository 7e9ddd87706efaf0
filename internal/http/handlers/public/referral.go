package public

import (
	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/gin-gonic/gin"
)

// MintReferralCodeRequest 生成邀请码请求
type MintReferralCodeRequest struct {
	ForceNew bool `json:"force_new"`
}

// GetMyReferralCode 当前启用中的邀请码，没有时 data 为 null
func (h *Handler) GetMyReferralCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	code, err := h.ReferralCodeMinter.Current(uid)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.Success(c, code)
}

// MintReferralCode 生成邀请码；已有且未要求换新时返回原码
func (h *Handler) MintReferralCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req MintReferralCodeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
	}
	code, created, err := h.ReferralCodeMinter.Mint(c.Request.Context(), uid, service.MintOptions{ForceNew: req.ForceNew})
	if err != nil {
		respondRedeemError(c, err)
		return
	}
	response.Success(c, gin.H{
		"code":    code,
		"created": created,
	})
}

// ListMyReferrals 我邀请的用户
func (h *Handler) ListMyReferrals(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	referrals, total, err := h.RewardManager.ListReferrals(repository.ReferralListFilter{
		Page:       page,
		PageSize:   pageSize,
		ReferrerID: uid,
	})
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, referrals, response.BuildPagination(page, pageSize, total))
}
