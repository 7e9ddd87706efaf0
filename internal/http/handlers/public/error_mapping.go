package public

import (
	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"
	"github.com/dujiao-next/redemption/internal/http/response"

	"github.com/gin-gonic/gin"
)

func respondRedeemError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, handlershared.CommonErrorRules, response.CodeInternal, "error.save_failed")
}

func respondFetchError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, handlershared.CommonErrorRules, response.CodeInternal, "error.fetch_failed")
}
