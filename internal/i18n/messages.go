package i18n

import "github.com/dujiao-next/redemption/internal/constants"

var messages = map[string]map[string]string{
	constants.LocaleZhCN: {
		"error.bad_request":               "请求参数错误",
		"error.unauthorized":              "未登录或登录已失效",
		"error.forbidden":                 "没有权限执行该操作",
		"error.internal":                  "服务器内部错误",
		"error.jwt_secret_missing":        "鉴权密钥未配置",
		"error.auth_header_missing":       "缺少 Authorization 请求头",
		"error.auth_header_invalid":       "Authorization 格式错误",
		"error.token_invalid":             "令牌无效或已过期",
		"error.user_id_invalid":           "用户 ID 无效",
		"error.user_id_type_invalid":      "用户 ID 类型错误",
		"error.admin_id_invalid":          "管理员 ID 无效",
		"error.admin_id_type_invalid":     "管理员 ID 类型错误",
		"error.rate_limit_unavailable":    "限流服务暂不可用",
		"error.rate_limited":              "请求过于频繁，请 %d 秒后再试",
		"error.redeem_too_many":           "兑换尝试过于频繁，请 %d 秒后再试",
		"error.transient_retry":           "系统繁忙，请稍后重试",
		"error.fetch_failed":              "查询失败",
		"error.save_failed":               "保存失败",
		"error.code_not_found":            "兑换码不存在",
		"error.code_exists":               "兑换码已存在",
		"error.code_invalid":              "兑换码参数不合法",
		"error.code_limit_below_used":     "总次数上限不能低于已使用次数",
		"error.redemption_not_found":      "兑换记录不存在",
		"error.redemption_closed":         "兑换记录已取消或已退款",
		"error.redemption_order_attached": "兑换记录已绑定其他订单",
		"error.redeemer_required":         "使用邀请码需要先登录",
		"error.referral_not_found":        "邀请关系不存在",
		"error.referral_invalidated":      "邀请关系已失效",
		"error.referral_code_exhausted":   "邀请码生成失败，请稍后重试",
		"error.reward_not_found":          "奖励不存在",
		"error.reward_apply_failed":       "奖励发放失败",
		"error.reward_no_applier":         "该奖励类型暂不支持使用",
		"error.role_invalid":              "角色参数不合法",
		"denial.not_found":                "兑换码不存在",
		"denial.inactive":                 "兑换码或奖励未启用",
		"denial.not_yet_started":          "兑换码尚未生效",
		"denial.expired":                  "已过期",
		"denial.global_limit_reached":     "兑换码已被领完",
		"denial.per_user_limit_reached":   "已达到个人使用次数上限",
		"denial.self_referral":            "不能使用自己的邀请码",
		"denial.already_referred":         "您已被其他用户邀请过",
		"denial.already_terminal":         "奖励已使用、过期或取消",
	},
	constants.LocaleZhTW: {
		"error.bad_request":               "請求參數錯誤",
		"error.unauthorized":              "未登入或登入已失效",
		"error.forbidden":                 "沒有權限執行該操作",
		"error.internal":                  "伺服器內部錯誤",
		"error.token_invalid":             "令牌無效或已過期",
		"error.rate_limited":              "請求過於頻繁，請 %d 秒後再試",
		"error.redeem_too_many":           "兌換嘗試過於頻繁，請 %d 秒後再試",
		"error.transient_retry":           "系統繁忙，請稍後重試",
		"error.code_not_found":            "兌換碼不存在",
		"error.code_exists":               "兌換碼已存在",
		"error.redemption_not_found":      "兌換記錄不存在",
		"error.redemption_closed":         "兌換記錄已取消或已退款",
		"error.redeemer_required":         "使用邀請碼需要先登入",
		"error.reward_not_found":          "獎勵不存在",
		"denial.not_found":                "兌換碼不存在",
		"denial.inactive":                 "兌換碼或獎勵未啟用",
		"denial.not_yet_started":          "兌換碼尚未生效",
		"denial.expired":                  "已過期",
		"denial.global_limit_reached":     "兌換碼已被領完",
		"denial.per_user_limit_reached":   "已達到個人使用次數上限",
		"denial.self_referral":            "不能使用自己的邀請碼",
		"denial.already_referred":         "您已被其他用戶邀請過",
		"denial.already_terminal":         "獎勵已使用、過期或取消",
	},
	constants.LocaleEnUS: {
		"error.bad_request":               "Invalid request parameters",
		"error.unauthorized":              "Not signed in or session expired",
		"error.forbidden":                 "Permission denied",
		"error.internal":                  "Internal server error",
		"error.jwt_secret_missing":        "Auth secret is not configured",
		"error.auth_header_missing":       "Missing Authorization header",
		"error.auth_header_invalid":       "Malformed Authorization header",
		"error.token_invalid":             "Token is invalid or expired",
		"error.user_id_invalid":           "Invalid user id",
		"error.user_id_type_invalid":      "Unexpected user id type",
		"error.admin_id_invalid":          "Invalid admin id",
		"error.admin_id_type_invalid":     "Unexpected admin id type",
		"error.rate_limit_unavailable":    "Rate limiter unavailable",
		"error.rate_limited":              "Too many requests, retry in %d seconds",
		"error.redeem_too_many":           "Too many redemption attempts, retry in %d seconds",
		"error.transient_retry":           "Service busy, please retry",
		"error.fetch_failed":              "Query failed",
		"error.save_failed":               "Save failed",
		"error.code_not_found":            "Code not found",
		"error.code_exists":               "Code already exists",
		"error.code_invalid":              "Invalid code parameters",
		"error.code_limit_below_used":     "Global limit cannot be lower than current usage",
		"error.redemption_not_found":      "Redemption record not found",
		"error.redemption_closed":         "Redemption already cancelled or refunded",
		"error.redemption_order_attached": "Redemption already bound to another order",
		"error.redeemer_required":         "Sign in to use a referral code",
		"error.referral_not_found":        "Referral not found",
		"error.referral_invalidated":      "Referral has been invalidated",
		"error.referral_code_exhausted":   "Could not generate a referral code, retry later",
		"error.reward_not_found":          "Reward not found",
		"error.reward_apply_failed":       "Reward could not be applied",
		"error.reward_no_applier":         "This reward kind cannot be applied yet",
		"error.role_invalid":              "Invalid role",
		"denial.not_found":                "Code not found",
		"denial.inactive":                 "Code or reward is not active",
		"denial.not_yet_started":          "Code is not valid yet",
		"denial.expired":                  "Expired",
		"denial.global_limit_reached":     "Code has been fully redeemed",
		"denial.per_user_limit_reached":   "Personal usage limit reached",
		"denial.self_referral":            "You cannot use your own referral code",
		"denial.already_referred":         "You have already been referred",
		"denial.already_terminal":         "Reward already used, expired or cancelled",
	},
}
