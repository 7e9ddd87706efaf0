package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dujiao-next/redemption/internal/constants"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		header string
		value  string
		want   string
	}{
		{"", "", constants.LocaleZhCN},
		{"Accept-Language", "en-GB,en;q=0.9", constants.LocaleEnUS},
		{"Accept-Language", "zh-Hant-TW;q=0.8", constants.LocaleZhTW},
		{"Accept-Language", "fr-FR, zh;q=0.5", constants.LocaleZhCN},
		{"X-Locale", "zh_TW", constants.LocaleZhTW},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set(tc.header, tc.value)
		}
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("%s=%q want %s got %s", tc.header, tc.value, tc.want, got)
		}
	}
	if got := ResolveLocale(nil); got != constants.LocaleZhCN {
		t.Fatalf("nil context should fall back to zh-CN, got %s", got)
	}
}

func TestTranslateFallback(t *testing.T) {
	if got := T(constants.LocaleEnUS, "denial.expired"); got != "Expired" {
		t.Fatalf("unexpected en message: %s", got)
	}
	if got := T(constants.LocaleZhTW, "error.jwt_secret_missing"); got != messages[constants.LocaleZhCN]["error.jwt_secret_missing"] {
		t.Fatalf("missing zh-TW key should fall back to zh-CN, got %s", got)
	}
	if got := T("ja-JP", "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("unknown key should echo itself, got %s", got)
	}
	if got := Sprintf(constants.LocaleEnUS, "error.rate_limited", 30); got != "Too many requests, retry in 30 seconds" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}
