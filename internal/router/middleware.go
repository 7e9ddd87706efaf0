package router

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/redemption/internal/authz"
	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/i18n"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const traceIDHeader = "X-Trace-ID"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Locale"}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowedOrigin := resolveAllowedOrigin(c.GetHeader("Origin"), allowedOrigins, cfg.AllowCredentials); allowedOrigin != "" {
			header.Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				header.Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", headersHeader)
		header.Set("Access-Control-Allow-Methods", methodsHeader)
		header.Set("Access-Control-Expose-Headers", requestIDHeader+", "+traceIDHeader)
		if cfg.MaxAge > 0 {
			header.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	for _, allowed := range allowedOrigins {
		if allowed != "*" {
			continue
		}
		// 携带凭证时浏览器拒绝通配符，只能回显来源
		if allowCredentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// TracingMiddleware 为每个请求开启 span，并延续上游传入的 trace 上下文
func TracingMiddleware() gin.HandlerFunc {
	propagator := otel.GetTextMapPropagator()
	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracing.Start(ctx, c.Request.Method+" "+route,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("request.id", getRequestID(c)),
		)
		c.Request = c.Request.WithContext(ctx)
		if traceID := tracing.TraceID(ctx); traceID != "" {
			c.Writer.Header().Set(traceIDHeader, traceID)
		}

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		var err error
		if len(c.Errors) > 0 {
			err = c.Errors.Last()
		}
		tracing.End(span, err)
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if traceID := tracing.TraceID(c.Request.Context()); traceID != "" {
			fields = append(fields, "trace_id", traceID)
		}
		if len(c.Errors) > 0 {
			sugar.Errorw("request", append(fields, "errors", c.Errors.String())...)
			return
		}
		sugar.Infow("request", fields...)
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}

// JWTAuthMiddleware 管理员 JWT 鉴权中间件
func JWTAuthMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.SecretKey == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		tokenString, err := bearerToken(c)
		if err != nil {
			abortUnauthorized(c, authErrorKey(err))
			return
		}
		claims, err := parseAdminToken(cfg, tokenString)
		if err != nil {
			abortUnauthorized(c, authErrorKey(err))
			return
		}
		c.Set(adminIDContextKey, claims.AdminID)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

// UserJWTAuthMiddleware 用户 JWT 鉴权中间件，令牌必填
func UserJWTAuthMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	return userIdentityMiddleware(cfg, true)
}

// OptionalUserJWTMiddleware 可选用户鉴权：无 Authorization 时按游客放行，携带但无效时拒绝
func OptionalUserJWTMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	return userIdentityMiddleware(cfg, false)
}

func userIdentityMiddleware(cfg config.JWTConfig, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.SecretKey == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		tokenString, err := bearerToken(c)
		if errors.Is(err, errAuthHeaderMissing) && !required {
			c.Next()
			return
		}
		if err != nil {
			abortUnauthorized(c, authErrorKey(err))
			return
		}
		claims, err := parseUserToken(cfg, tokenString)
		if err != nil {
			abortUnauthorized(c, authErrorKey(err))
			return
		}
		c.Set(userIDContextKey, claims.UserID)
		c.Next()
	}
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		adminID, ok := c.Get(adminIDContextKey)
		id, typeOK := adminID.(uint)
		if !ok || !typeOK || id == 0 {
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}
		allowed, err := authzService.EnforceAdmin(id, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", id,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", id,
				"method", c.Request.Method,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, i18n.T(i18n.ResolveLocale(c), "error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}
