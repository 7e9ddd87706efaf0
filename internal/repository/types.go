package repository

import "time"

// CodeListFilter 兑换码列表筛选
type CodeListFilter struct {
	Page     int
	PageSize int
	Kind     string
	Status   string
	Search   string
	OwnerID  uint
	IsActive *bool
}

// RedemptionListFilter 兑换记录列表筛选
type RedemptionListFilter struct {
	Page       int
	PageSize   int
	CodeID     uint
	RedeemerID uint
	Status     string
}

// ReferralListFilter 邀请关系列表筛选
type ReferralListFilter struct {
	Page       int
	PageSize   int
	ReferrerID uint
	ReferredID uint
	CodeID     uint
	Status     string
}

// RewardListFilter 邀请奖励列表筛选
type RewardListFilter struct {
	Page          int
	PageSize      int
	BeneficiaryID uint
	ReferralID    uint
	Status        string
}

// WalletTransactionListFilter 钱包流水筛选
type WalletTransactionListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Type     string
	From     *time.Time
	To       *time.Time
}
