package service

import "errors"

// 通用错误
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTransient        = errors.New("transient storage failure, retry later")
	ErrNotFound         = errors.New("resource not found")
	ErrRedeemerRequired = errors.New("redeemer required for referral code")
)

// 兑换码错误
var (
	ErrCodeNotFound       = errors.New("code not found")
	ErrCodeExists         = errors.New("code already exists")
	ErrCodeInvalid        = errors.New("code invalid")
	ErrCodeFetchFailed    = errors.New("code fetch failed")
	ErrCodeUpdateFailed   = errors.New("code update failed")
	ErrCodeLimitBelowUsed = errors.New("global usage limit below current usage")
)

// 兑换记录错误
var (
	ErrRedemptionNotFound      = errors.New("redemption record not found")
	ErrRedemptionClosed        = errors.New("redemption record already cancelled or refunded")
	ErrRedemptionOrderAttached = errors.New("redemption record already bound to an order")
	ErrRedemptionCreateFailed  = errors.New("redemption record create failed")
)

// 邀请码错误
var (
	ErrGenerationExhausted = errors.New("referral code generation exhausted")
	ErrReferralNotFound    = errors.New("referral not found")
	ErrReferralInvalidated = errors.New("referral already invalidated")
)

// 奖励错误
var (
	ErrRewardNotFound    = errors.New("reward not found")
	ErrRewardApplyFailed = errors.New("reward apply failed")
	ErrRewardRuleInvalid = errors.New("reward rule invalid")
	ErrRewardNoApplier   = errors.New("no applier registered for reward kind")
)

// 钱包错误
var (
	ErrWalletInvalidAmount           = errors.New("wallet amount invalid")
	ErrWalletAccountNotFound         = errors.New("wallet account not found")
	ErrWalletAccountCreateFailed     = errors.New("wallet account create failed")
	ErrWalletAccountUpdateFailed     = errors.New("wallet account update failed")
	ErrWalletTransactionCreateFailed = errors.New("wallet transaction create failed")
)
