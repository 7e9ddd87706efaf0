package router

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/i18n"
	"github.com/dujiao-next/redemption/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则；BlockSeconds > 0 时超限后整段封禁，而不是等计数窗口滚动
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

// KEYS[1] 计数键 KEYS[2] 封禁键；ARGV 窗口秒数、上限、封禁秒数
// 返回 {计数, 剩余秒数}，计数为 -1 表示处于封禁期
var rateLimitScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[2])
if blocked > 0 then
	return {-1, blocked}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local block = tonumber(ARGV[3])
if current > tonumber(ARGV[2]) and block > 0 then
	redis.call("SET", KEYS[2], "1", "EX", block)
	return {current, block}
end
return {current, redis.call("TTL", KEYS[1])}
`)

// RateLimitMiddleware Redis 频率限制中间件；Redis 不可用时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		values, err := rateLimitScript.Run(c.Request.Context(), client, []string{key, key + ":block"},
			rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds).Int64Slice()
		if err != nil || len(values) < 2 {
			// 限流只是保护层，Redis 故障不阻断兑换
			logger.Warnw("rate_limit_eval_failed", "key", key, "error", err)
			c.Next()
			return
		}
		count, ttlSeconds := values[0], values[1]
		if count >= 0 && count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		waitSeconds := int(ttlSeconds)
		if waitSeconds < 1 {
			waitSeconds = rule.WindowSeconds
		}
		msgKey := strings.TrimSpace(rule.MessageKey)
		if msgKey == "" {
			msgKey = "error.rate_limited"
		}
		c.Header("Retry-After", fmt.Sprintf("%d", waitSeconds))
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds))
		c.Abort()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// KeyByUserOrIP 已登录按用户限流，游客按 IP 限流；需放在用户鉴权中间件之后
func KeyByUserOrIP(c *gin.Context) string {
	if value, ok := c.Get(userIDContextKey); ok {
		if userID, ok := value.(uint); ok && userID != 0 {
			return fmt.Sprintf("user:%d", userID)
		}
	}
	return KeyByIP(c)
}
