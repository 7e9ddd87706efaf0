package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/redemption/internal/authz"
	"github.com/dujiao-next/redemption/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{SecretKey: "router-test-secret-0123456789abcdef", Issuer: "redemption-test"}

func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWT.SecretKey))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

func registered(issuer string, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
}

func decodeStatusCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp.StatusCode
}

func TestResolveAllowedOrigin(t *testing.T) {
	if got := resolveAllowedOrigin("https://example.com", []string{"*"}, false); got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}
	if got := resolveAllowedOrigin("https://example.com", []string{"*"}, true); got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}
	if got := resolveAllowedOrigin("https://a.example.com", []string{"https://A.example.com"}, false); got != "https://a.example.com" {
		t.Fatalf("allow-list should match case-insensitively, got %s", got)
	}
	if got := resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false); got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}, MaxAge: 600}))
	r.POST("/api/v1/redemptions", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/redemptions", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight want 204 got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://shop.example.com" {
		t.Fatalf("unexpected allow origin: %s", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("max age header missing")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), traceIDHeader) {
		t.Fatalf("trace header should be exposed")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if strings.TrimSpace(w2.Header().Get(requestIDHeader)) == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func TestJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(config.JWTConfig{}))
	r.GET("/admin/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestJWTAuthMiddlewareSetsAdminIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(testJWT))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin_id": c.GetUint(adminIDContextKey), "username": c.GetString(usernameKey)})
	})

	token := signToken(t, AdminClaims{AdminID: 7, Username: "ops", RegisteredClaims: registered(testJWT.Issuer, time.Hour)})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"admin_id":7`) || !strings.Contains(w.Body.String(), `"username":"ops"`) {
		t.Fatalf("admin identity not propagated: %s", w.Body.String())
	}
}

func TestJWTAuthMiddlewareRejectsBadTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(testJWT))
	r.GET("/admin/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	cases := map[string]string{
		"expired":      "Bearer " + signToken(t, AdminClaims{AdminID: 7, RegisteredClaims: registered(testJWT.Issuer, -time.Minute)}),
		"wrong issuer": "Bearer " + signToken(t, AdminClaims{AdminID: 7, RegisteredClaims: registered("other", time.Hour)}),
		"zero id":      "Bearer " + signToken(t, AdminClaims{RegisteredClaims: registered(testJWT.Issuer, time.Hour)}),
		"bad scheme":   "Token abc",
	}
	for name, header := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)
		if code := decodeStatusCode(t, w); code != 401 {
			t.Fatalf("%s: status_code want 401 got %d", name, code)
		}
	}
}

func TestOptionalUserJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalUserJWTMiddleware(testJWT))
	r.GET("/redeem", func(c *gin.Context) {
		_, present := c.Get(userIDContextKey)
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "user": present, "key": KeyByUserOrIP(c)})
	})

	// 游客
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/redeem", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"user":false`) || !strings.Contains(w.Body.String(), `"key":"ip:10.0.0.9"`) {
		t.Fatalf("guest should pass through keyed by ip: %s", w.Body.String())
	}

	// 已登录
	token := signToken(t, UserClaims{UserID: 42, RegisteredClaims: registered(testJWT.Issuer, time.Hour)})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/redeem", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"key":"user:42"`) {
		t.Fatalf("user should be keyed by id: %s", w.Body.String())
	}

	// 携带无效令牌不降级为游客
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/redeem", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("invalid token should be rejected, got %d", code)
	}
}

func TestUserJWTAuthMiddlewareRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(UserJWTAuthMiddleware(testJWT))
	r.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("missing token want 401 got %d", code)
	}
}

func TestAdminRBACMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_rbac_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	if err := authzService.SetAdminRoles(3, []string{"readonly_auditor"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(adminIDContextKey, uint(3))
		c.Next()
	})
	r.Use(AdminRBACMiddleware(authzService))
	r.GET("/api/v1/admin/codes", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) })
	r.POST("/api/v1/admin/codes", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/codes", nil))
	if code := decodeStatusCode(t, w); code != 0 {
		t.Fatalf("auditor should read codes, got %d", code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/codes", nil))
	if code := decodeStatusCode(t, w); code != 403 {
		t.Fatalf("auditor should not create codes, got %d", code)
	}
}
