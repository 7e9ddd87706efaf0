package models

import (
	"time"

	"github.com/dujiao-next/redemption/internal/constants"
)

// ReferralReward 邀请奖励
type ReferralReward struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                // 主键
	ReferralID    uint       `gorm:"not null;index" json:"referral_id"`                   // 邀请关系ID
	BeneficiaryID uint       `gorm:"not null;index" json:"beneficiary_id"`                // 受益用户
	Role          string     `gorm:"type:varchar(20);not null" json:"role"`               // 受益方（referrer/referee）
	Kind          string     `gorm:"type:varchar(20);not null" json:"kind"`               // 奖励类型
	Amount        Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 奖励数额
	CurrencyCode  string     `gorm:"type:varchar(16)" json:"currency_code"`               // 币种（points/gift 可为空）
	Status        string     `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态
	ExpiresAt     *time.Time `gorm:"index" json:"expires_at"`                             // 过期时间
	AppliedAt     *time.Time `json:"applied_at"`                                          // 使用时间
	OrderID       *uint      `gorm:"index" json:"order_id"`                               // 使用订单
	ExpiredAt     *time.Time `json:"expired_at"`                                          // 标记过期时间
	CancelReason  string     `gorm:"type:varchar(255)" json:"cancel_reason"`              // 取消原因
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt     time.Time  `gorm:"index" json:"updated_at"`                             // 更新时间
}

// TableName 指定表名
func (ReferralReward) TableName() string {
	return "referral_rewards"
}

// IsTerminal 是否处于终态
func (r *ReferralReward) IsTerminal() bool {
	switch r.Status {
	case constants.RewardStatusApplied, constants.RewardStatusExpired, constants.RewardStatusCancelled:
		return true
	}
	return false
}

// ExpiredAtTime 在 now 时刻是否已过期
func (r *ReferralReward) ExpiredAtTime(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
