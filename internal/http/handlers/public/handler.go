package public

import "github.com/dujiao-next/redemption/internal/provider"

// Handler 前台接口处理器入口
// 说明：兑换与预检允许游客访问，/me 下的接口要求用户令牌。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
