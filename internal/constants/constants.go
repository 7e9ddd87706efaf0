package constants

// 兑换码类型常量
const (
	CodeKindDiscount = "discount"
	CodeKindReferral = "referral"
)

// 兑换码状态常量
const (
	CodeStatusDraft     = "draft"
	CodeStatusActive    = "active"
	CodeStatusPaused    = "paused"
	CodeStatusExpired   = "expired"
	CodeStatusExhausted = "exhausted"
)

// 兑换记录状态常量
const (
	RedemptionStatusPending   = "pending"
	RedemptionStatusRedeemed  = "redeemed"
	RedemptionStatusCancelled = "cancelled"
	RedemptionStatusRefunded  = "refunded"
)

// 邀请关系状态常量
const (
	ReferralStatusCompleted   = "completed"
	ReferralStatusQualified   = "qualified"
	ReferralStatusInvalidated = "invalidated"
)

// 邀请奖励类型常量
const (
	RewardKindDiscount = "discount"
	RewardKindCredit   = "credit"
	RewardKindPoints   = "points"
	RewardKindGift     = "gift"
)

// 邀请奖励状态常量
const (
	RewardStatusPending   = "pending"
	RewardStatusActive    = "active"
	RewardStatusApplied   = "applied"
	RewardStatusExpired   = "expired"
	RewardStatusCancelled = "cancelled"
)

// 邀请奖励受益方常量
const (
	RewardBeneficiaryReferrer = "referrer"
	RewardBeneficiaryReferee  = "referee"
)

// DenialReason 业务拒绝原因
type DenialReason string

// 兑换与奖励拒绝原因常量
const (
	DenialNone                DenialReason = ""
	DenialNotFound            DenialReason = "not_found"
	DenialInactive            DenialReason = "inactive"
	DenialNotYetStarted       DenialReason = "not_yet_started"
	DenialExpired             DenialReason = "expired"
	DenialGlobalLimitReached  DenialReason = "global_limit_reached"
	DenialPerUserLimitReached DenialReason = "per_user_limit_reached"
	DenialSelfReferral        DenialReason = "self_referral"
	DenialAlreadyReferred     DenialReason = "already_referred"
	DenialAlreadyTerminal     DenialReason = "already_terminal"
)

// 钱包交易类型常量
const (
	WalletTxnTypeReferralCredit = "referral_credit"
	WalletTxnTypeAdminAdjust    = "admin_adjust"
)

// 钱包交易方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 通知事件常量
const (
	NotificationEventCodeRedeemed     = "code_redeemed"
	NotificationEventRedemptionVoided = "redemption_voided"
	NotificationEventReferralComplete = "referral_completed"
	NotificationEventRewardActivated  = "reward_activated"
	NotificationEventRewardApplied    = "reward_applied"
	NotificationEventRewardExpired    = "reward_expired"
)

// 通知业务类型常量
const (
	NotificationBizTypeRedemption = "redemption"
	NotificationBizTypeReward     = "referral_reward"
)

// 队列常量
const (
	QueueDefault             = "default"
	QueueCritical            = "critical"
	TaskNotificationDispatch = "notification:dispatch"
	TaskRewardExpire         = "referral_reward:expire"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "rdm"
)

// 币种常量
const (
	CurrencyDefault = "CNY"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleZhTW = "zh-TW"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleZhCN, LocaleZhTW, LocaleEnUS}
