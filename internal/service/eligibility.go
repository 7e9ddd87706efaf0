package service

import (
	"time"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"
)

// Decision 资格判定结果
type Decision struct {
	Allowed bool                   `json:"allowed"`
	Reason  constants.DenialReason `json:"reason,omitempty"`
}

// Allow 允许
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny 拒绝并附带原因
func Deny(reason constants.DenialReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// EligibilityInput 资格判定输入，计数须来自同一致性快照
type EligibilityInput struct {
	Code                    *models.Code // 为空表示不存在或已删除
	RedeemerID              *uint
	PriorCountForCode       int64 // 该码已兑换次数
	PriorCountForRedeemer   int64 // 该用户对该码 pending + redeemed 记录数
	RedeemerAlreadyReferred bool  // 用户已存在有效邀请关系
	EnforceUniqueReferee    bool
	Now                     time.Time
}

// EvaluateEligibility 按固定顺序判定兑换资格，首个命中的规则生效
func EvaluateEligibility(in EligibilityInput) Decision {
	code := in.Code
	if code == nil || code.DeletedAt.Valid {
		return Deny(constants.DenialNotFound)
	}
	if !code.IsActive {
		return Deny(constants.DenialInactive)
	}
	if code.ValidFrom != nil && in.Now.Before(*code.ValidFrom) {
		return Deny(constants.DenialNotYetStarted)
	}
	if code.ValidUntil != nil && in.Now.After(*code.ValidUntil) {
		return Deny(constants.DenialExpired)
	}
	if code.GlobalUsageLimit != nil && in.PriorCountForCode >= int64(*code.GlobalUsageLimit) {
		return Deny(constants.DenialGlobalLimitReached)
	}
	if code.PerUserUsageLimit != nil && in.RedeemerID != nil && in.PriorCountForRedeemer >= int64(*code.PerUserUsageLimit) {
		return Deny(constants.DenialPerUserLimitReached)
	}
	if code.Kind == constants.CodeKindReferral && in.RedeemerID != nil {
		if code.OwnerID != nil && *code.OwnerID == *in.RedeemerID {
			return Deny(constants.DenialSelfReferral)
		}
		if in.EnforceUniqueReferee && in.RedeemerAlreadyReferred {
			return Deny(constants.DenialAlreadyReferred)
		}
	}
	return Allow()
}
