package shared

import (
	"errors"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/http/response"
	"github.com/dujiao-next/redemption/internal/i18n"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 与 trace_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil || c.Request == nil {
		return logger.S()
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.Ctx(c.Request.Context(), "request_id", id)
	}
	return logger.Ctx(c.Request.Context())
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
		_ = c.Error(err)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// DenialView 业务拒绝的响应体
type DenialView struct {
	Success bool                   `json:"success"`
	Reason  constants.DenialReason `json:"reason"`
	Message string                 `json:"message"`
}

// RespondDenied 业务拒绝不是接口错误，以成功信封返回原因与本地化提示
func RespondDenied(c *gin.Context, reason constants.DenialReason) {
	response.Success(c, DenialView{
		Success: false,
		Reason:  reason,
		Message: i18n.T(i18n.ResolveLocale(c), "denial."+string(reason)),
	})
}

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// CommonErrorRules 各端共用的领域错误映射
var CommonErrorRules = []MappedError{
	{Target: service.ErrTransient, Code: response.CodeServiceUnavailable, Key: "error.transient_retry"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrRedeemerRequired, Code: response.CodeUnauthorized, Key: "error.redeemer_required"},
	{Target: service.ErrCodeNotFound, Code: response.CodeNotFound, Key: "error.code_not_found"},
	{Target: service.ErrCodeExists, Code: response.CodeConflict, Key: "error.code_exists"},
	{Target: service.ErrCodeInvalid, Code: response.CodeBadRequest, Key: "error.code_invalid"},
	{Target: service.ErrCodeLimitBelowUsed, Code: response.CodeBadRequest, Key: "error.code_limit_below_used"},
	{Target: service.ErrRedemptionNotFound, Code: response.CodeNotFound, Key: "error.redemption_not_found"},
	{Target: service.ErrRedemptionClosed, Code: response.CodeConflict, Key: "error.redemption_closed"},
	{Target: service.ErrRedemptionOrderAttached, Code: response.CodeConflict, Key: "error.redemption_order_attached"},
	{Target: service.ErrGenerationExhausted, Code: response.CodeServiceUnavailable, Key: "error.referral_code_exhausted"},
	{Target: service.ErrReferralNotFound, Code: response.CodeNotFound, Key: "error.referral_not_found"},
	{Target: service.ErrReferralInvalidated, Code: response.CodeConflict, Key: "error.referral_invalidated"},
	{Target: service.ErrRewardNotFound, Code: response.CodeNotFound, Key: "error.reward_not_found"},
	{Target: service.ErrRewardNoApplier, Code: response.CodeInternal, Key: "error.reward_no_applier"},
	{Target: service.ErrRewardApplyFailed, Code: response.CodeInternal, Key: "error.reward_apply_failed"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.fetch_failed"},
}

// RespondWithMappedError 按规则映射错误；未命中的错误记录日志并返回兜底响应。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		// 5xx 仍需留痕
		if rule.Code >= response.CodeInternal {
			RespondError(c, rule.Code, rule.Key, err)
			return
		}
		RespondError(c, rule.Code, rule.Key, nil)
		return
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}
