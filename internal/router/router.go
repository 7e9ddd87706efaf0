package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dujiao-next/redemption/internal/authz"
	"github.com/dujiao-next/redemption/internal/cache"
	"github.com/dujiao-next/redemption/internal/config"
	adminhandlers "github.com/dujiao-next/redemption/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/redemption/internal/http/handlers/public"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rd"
	}
	redeemRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:redeem", redisPrefix),
		WindowSeconds: cfg.Security.RedeemRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RedeemRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.RedeemRateLimit.BlockSeconds,
		MessageKey:    "error.redeem_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(TracingMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 兑换接口：游客可预检，折扣码允许游客兑换
		redemptions := apiV1.Group("/redemptions", OptionalUserJWTMiddleware(cfg.UserJWT))
		{
			redemptions.POST("/preview", publicHandler.PreviewRedemption)
			redemptions.POST("", RateLimitMiddleware(cache.Client(), redeemRule, KeyByUserOrIP), publicHandler.Redeem)
		}

		// 当前用户
		me := apiV1.Group("/me", UserJWTAuthMiddleware(cfg.UserJWT))
		{
			me.GET("/redemptions", publicHandler.ListMyRedemptions)
			me.GET("/referral-code", publicHandler.GetMyReferralCode)
			me.POST("/referral-code", publicHandler.MintReferralCode)
			me.GET("/referrals", publicHandler.ListMyReferrals)
			me.GET("/rewards", publicHandler.ListMyRewards)
			me.GET("/rewards/:id", publicHandler.GetMyReward)
			me.POST("/rewards/:id/apply", publicHandler.ApplyMyReward)
			me.GET("/wallet", publicHandler.GetMyWallet)
			me.GET("/wallet/transactions", publicHandler.ListMyWalletTransactions)
		}

		// 管理员接口
		admin := apiV1.Group("/admin", JWTAuthMiddleware(cfg.AdminJWT), AdminRBACMiddleware(c.AuthzService))
		{
			// 兑换码
			admin.GET("/codes", adminHandler.ListCodes)
			admin.GET("/codes/:id", adminHandler.GetCode)
			admin.POST("/codes", adminHandler.CreateCode)
			admin.PUT("/codes/:id", adminHandler.UpdateCode)
			admin.PATCH("/codes/:id/active", adminHandler.SetCodeActive)
			admin.DELETE("/codes/:id", adminHandler.DeleteCode)
			admin.GET("/codes/:id/redemptions", adminHandler.ListCodeRedemptions)

			// 兑换台账
			admin.GET("/redemptions", adminHandler.ListRedemptions)
			admin.GET("/redemptions/:id", adminHandler.GetRedemption)
			admin.POST("/redemptions/:id/cancel", adminHandler.CancelRedemption)
			admin.POST("/redemptions/:id/refund", adminHandler.RefundRedemption)
			admin.POST("/redemptions/:id/order", adminHandler.AttachRedemptionOrder)

			// 邀请关系与奖励
			admin.GET("/referrals", adminHandler.ListReferrals)
			admin.POST("/referrals/:id/confirm", adminHandler.ConfirmReferral)
			admin.POST("/referrals/:id/invalidate", adminHandler.InvalidateReferral)
			admin.GET("/rewards", adminHandler.ListRewards)
			admin.GET("/rewards/:id", adminHandler.GetReward)
			admin.POST("/rewards/:id/activate", adminHandler.ActivateReward)
			admin.POST("/rewards/:id/cancel", adminHandler.CancelReward)
			admin.POST("/rewards/sweep", adminHandler.SweepRewards)

			// 用户钱包
			admin.GET("/users/:id/wallet", adminHandler.GetUserWallet)
			admin.GET("/users/:id/wallet/transactions", adminHandler.ListUserWalletTransactions)

			// 权限管理
			admin.GET("/authz/me", adminHandler.GetAuthzMe)
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			admin.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
			admin.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))
	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module != items[j].Module {
			return items[i].Module < items[j].Module
		}
		if items[i].Object != items[j].Object {
			return items[i].Object < items[j].Object
		}
		return items[i].Method < items[j].Method
	})
	return items
}

// deriveAdminPermissionModule 取 /admin 之后的首段作为模块名
func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
