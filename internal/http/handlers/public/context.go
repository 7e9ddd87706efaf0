package public

import (
	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "user_id", "error.user_id_invalid", "error.user_id_type_invalid")
}

// optionalUserID 游客返回 nil
func optionalUserID(c *gin.Context) *uint {
	return handlershared.OptionalContextUint(c, "user_id")
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}
