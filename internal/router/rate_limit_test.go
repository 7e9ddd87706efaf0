package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1, BlockSeconds: 300}, KeyByUserOrIP))
	r.POST("/redeem", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/redeem", nil))
		if !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("request %d should pass without redis, got %s", i, w.Body.String())
		}
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/redeem", nil)
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if got := KeyByUserOrIP(c); got != "ip:1.2.3.4" {
		t.Fatalf("guest key want ip:1.2.3.4 got %s", got)
	}
	c.Set(userIDContextKey, uint(0))
	if got := KeyByUserOrIP(c); got != "ip:1.2.3.4" {
		t.Fatalf("zero user id should fall back to ip, got %s", got)
	}
	c.Set(userIDContextKey, uint(9))
	if got := KeyByUserOrIP(c); got != "user:9" {
		t.Fatalf("user key want user:9 got %s", got)
	}
}

func TestDeriveAdminPermissionModule(t *testing.T) {
	cases := map[string]string{
		"":                     "system",
		"/admin/codes/:id":     "codes",
		"/admin/authz/roles":   "authz",
		"/admin/rewards/sweep": "rewards",
		"/health":              "health",
	}
	for object, want := range cases {
		if got := deriveAdminPermissionModule(object); got != want {
			t.Fatalf("%q want %s got %s", object, want, got)
		}
	}
}
