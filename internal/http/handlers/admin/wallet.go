package admin

import (
	"strings"

	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetUserWallet 查看用户钱包
func (h *Handler) GetUserWallet(c *gin.Context) {
	userID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	account, err := h.WalletService.GetAccount(userID)
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.Success(c, account)
}

// ListUserWalletTransactions 查看用户钱包流水
func (h *Handler) ListUserWalletTransactions(c *gin.Context) {
	userID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	from, err := parseTimeNullable(c.Query("from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	to, err := parseTimeNullable(c.Query("to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	transactions, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Type:     strings.TrimSpace(c.Query("type")),
		From:     from,
		To:       to,
	})
	if err != nil {
		respondFetchError(c, err)
		return
	}
	response.SuccessWithPage(c, transactions, response.BuildPagination(page, pageSize, total))
}
