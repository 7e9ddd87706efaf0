package public

import (
	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetMyWallet 获取当前用户钱包（credit 奖励入账于此）
func (h *Handler) GetMyWallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	account, err := h.WalletService.GetAccount(uid)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.Success(c, account)
}

// ListMyWalletTransactions 获取当前用户钱包流水
func (h *Handler) ListMyWalletTransactions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	transactions, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
	})
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, transactions, response.BuildPagination(page, pageSize, total))
}
