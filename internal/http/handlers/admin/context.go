package admin

import (
	"strings"
	"time"

	handlershared "github.com/dujiao-next/redemption/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "admin_id", "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func currentUsername(c *gin.Context) string {
	return strings.TrimSpace(c.GetString("username"))
}

// parseTimeNullable 解析 RFC3339 时间，空串返回 nil
func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	utc := parsed.UTC()
	return &utc, nil
}
