package i18n

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/redemption/internal/constants"

	"github.com/gin-gonic/gin"
)

const localeHeader = "X-Locale"

// ResolveLocale 解析请求语言：X-Locale 优先，其次 Accept-Language，均无法识别时回退简体中文
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return constants.LocaleZhCN
	}
	if locale := NormalizeLocale(c.GetHeader(localeHeader)); locale != "" {
		return locale
	}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if locale := NormalizeLocale(tag); locale != "" {
			return locale
		}
	}
	return constants.LocaleZhCN
}

// NormalizeLocale 将语言标签归一到支持的站点语言，无法识别返回空串
func NormalizeLocale(tag string) string {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
	if normalized == "" {
		return ""
	}
	switch {
	case normalized == "zh-tw", normalized == "zh-hk", normalized == "zh-mo", strings.HasPrefix(normalized, "zh-hant"):
		return constants.LocaleZhTW
	case strings.HasPrefix(normalized, "zh"):
		return constants.LocaleZhCN
	case strings.HasPrefix(normalized, "en"):
		return constants.LocaleEnUS
	}
	return ""
}

// T 翻译消息；缺失时按支持语言顺序回退，最终返回 key 本身
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	for _, fallback := range constants.SupportedLocales {
		if msg, ok := messages[fallback][key]; ok {
			return msg
		}
	}
	return key
}

// Sprintf 翻译并格式化消息
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
