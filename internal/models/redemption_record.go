package models

import (
	"time"
)

// RedemptionRecord 兑换记录（台账，只追加）
type RedemptionRecord struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                                                     // 主键
	RecordNo         string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"record_no"`                                   // 记录编号
	CodeID           uint       `gorm:"not null;index:idx_redemption_code_user_status,priority:1" json:"code_id"`                 // 兑换码ID
	RedeemerID       *uint      `gorm:"index:idx_redemption_code_user_status,priority:2" json:"redeemer_id"`                      // 兑换用户（游客为空）
	OrderID          *uint      `gorm:"index" json:"order_id"`                                                                    // 关联订单
	AmountAttributed Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount_attributed"`                           // 归因金额
	Currency         string     `gorm:"type:varchar(16);not null" json:"currency"`                                                // 币种
	Status           string     `gorm:"type:varchar(20);not null;index:idx_redemption_code_user_status,priority:3" json:"status"` // 状态
	RedeemedAt       time.Time  `gorm:"index" json:"redeemed_at"`                                                                 // 兑换时间
	CancelledAt      *time.Time `json:"cancelled_at"`                                                                             // 作废时间
	CancelReason     string     `gorm:"type:varchar(255)" json:"cancel_reason"`                                                   // 作废原因
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                                                  // 创建时间
	UpdatedAt        time.Time  `gorm:"index" json:"updated_at"`                                                                  // 更新时间

	Code *Code `gorm:"foreignKey:CodeID" json:"code,omitempty"`
}

// TableName 指定表名
func (RedemptionRecord) TableName() string {
	return "redemption_records"
}
