package models

import (
	"time"

	"github.com/dujiao-next/redemption/internal/constants"

	"gorm.io/gorm"
)

// Code 兑换码（折扣码与邀请码共用）
type Code struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Code              string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`             // 码值（区分大小写）
	Kind              string         `gorm:"type:varchar(20);not null;index" json:"kind"`                   // 类型（discount/referral）
	Name              string         `gorm:"type:varchar(120)" json:"name"`                                 // 名称
	OwnerID           *uint          `gorm:"index" json:"owner_id"`                                         // 所有者（邀请码必填）
	ActiveOwnerID     *uint          `gorm:"uniqueIndex" json:"-"`                                          // 启用中的邀请码所有者，保证每人仅一个
	ValidFrom         *time.Time     `gorm:"index" json:"valid_from"`                                       // 生效时间
	ValidUntil        *time.Time     `gorm:"index" json:"valid_until"`                                      // 失效时间
	GlobalUsageLimit  *int           `json:"global_usage_limit"`                                            // 总使用上限（空表示不限制）
	PerUserUsageLimit *int           `json:"per_user_usage_limit"`                                          // 每人使用上限（空表示不限制）
	GlobalUsageCount  int            `gorm:"not null;default:0" json:"global_usage_count"`                  // 已兑换次数
	IsActive          bool           `gorm:"not null" json:"is_active"`                                     // 是否启用
	Status            string         `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"` // 状态
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (Code) TableName() string {
	return "codes"
}

// LimitReached 总使用次数是否已达上限
func (c *Code) LimitReached() bool {
	if c == nil || c.GlobalUsageLimit == nil {
		return false
	}
	return c.GlobalUsageCount >= *c.GlobalUsageLimit
}

// DeriveStatus 根据字段推导展示状态
func (c *Code) DeriveStatus(now time.Time) string {
	if c == nil {
		return ""
	}
	if c.LimitReached() {
		return constants.CodeStatusExhausted
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return constants.CodeStatusExpired
	}
	if !c.IsActive {
		if c.Status == constants.CodeStatusDraft {
			return constants.CodeStatusDraft
		}
		return constants.CodeStatusPaused
	}
	return constants.CodeStatusActive
}

// SyncActiveOwner 根据启用状态维护邀请码所有者唯一键
func (c *Code) SyncActiveOwner() {
	if c.Kind == constants.CodeKindReferral && c.IsActive && c.OwnerID != nil {
		owner := *c.OwnerID
		c.ActiveOwnerID = &owner
		return
	}
	c.ActiveOwnerID = nil
}

// IntPtr 返回 int 指针
func IntPtr(v int) *int {
	return &v
}

// UintPtr 返回 uint 指针
func UintPtr(v uint) *uint {
	return &v
}
