package models

import (
	"time"
)

// Referral 邀请关系（由邀请码兑换产生）
type Referral struct {
	ID                 uint       `gorm:"primarykey" json:"id"`                             // 主键
	CodeID             uint       `gorm:"not null;index" json:"code_id"`                    // 邀请码ID
	RedemptionRecordID uint       `gorm:"not null;uniqueIndex" json:"redemption_record_id"` // 兑换记录ID
	ReferrerID         uint       `gorm:"not null;index" json:"referrer_id"`                // 邀请人
	ReferredID         uint       `gorm:"not null;index" json:"referred_id"`                // 被邀请人
	ActiveReferredID   *uint      `gorm:"uniqueIndex" json:"-"`                             // 有效关系唯一约束，失效后置空
	Status             string     `gorm:"type:varchar(20);not null;index" json:"status"`    // 状态
	QualifiedAt        *time.Time `json:"qualified_at"`                                     // 确认时间
	InvalidatedAt      *time.Time `json:"invalidated_at"`                                   // 失效时间
	InvalidReason      string     `gorm:"type:varchar(255)" json:"invalid_reason"`          // 失效原因
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt          time.Time  `gorm:"index" json:"updated_at"`                          // 更新时间
}

// TableName 指定表名
func (Referral) TableName() string {
	return "referrals"
}
