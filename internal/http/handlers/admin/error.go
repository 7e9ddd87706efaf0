package admin

import (
	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondSaveError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, handlershared.CommonErrorRules, response.CodeInternal, "error.save_failed")
}

func respondFetchError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, handlershared.CommonErrorRules, response.CodeInternal, "error.fetch_failed")
}
