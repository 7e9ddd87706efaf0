package service

import (
	"context"
	"fmt"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/models"

	"gorm.io/gorm"
)

// RewardApplier 奖励生效时的资金/权益执行方，在奖励状态变更的同一事务内调用
type RewardApplier interface {
	ApplyInTx(ctx context.Context, tx *gorm.DB, reward *models.ReferralReward, orderID uint) error
}

// RewardApplierFunc 函数适配
type RewardApplierFunc func(ctx context.Context, tx *gorm.DB, reward *models.ReferralReward, orderID uint) error

// ApplyInTx 实现 RewardApplier
func (f RewardApplierFunc) ApplyInTx(ctx context.Context, tx *gorm.DB, reward *models.ReferralReward, orderID uint) error {
	return f(ctx, tx, reward, orderID)
}

// CreditRewardApplier 余额类奖励：写入钱包流水，参考号按奖励唯一
type CreditRewardApplier struct {
	wallet *WalletService
}

// NewCreditRewardApplier 创建余额奖励执行方
func NewCreditRewardApplier(wallet *WalletService) *CreditRewardApplier {
	return &CreditRewardApplier{wallet: wallet}
}

// ApplyInTx 实现 RewardApplier
func (a *CreditRewardApplier) ApplyInTx(ctx context.Context, tx *gorm.DB, reward *models.ReferralReward, orderID uint) error {
	if a == nil || a.wallet == nil {
		return ErrRewardNoApplier
	}
	_, txn, err := a.wallet.CreditInTx(tx, WalletCreditInput{
		UserID:    reward.BeneficiaryID,
		Amount:    reward.Amount,
		Currency:  reward.CurrencyCode,
		TxnType:   constants.WalletTxnTypeReferralCredit,
		Reference: fmt.Sprintf("referral_reward:%d", reward.ID),
		Remark:    fmt.Sprintf("邀请奖励入账：%d", reward.ReferralID),
		OrderID:   &orderID,
	})
	if err != nil {
		return err
	}
	logger.Ctx(ctx).Infow("reward_credit_applied",
		"reward_id", reward.ID,
		"beneficiary_id", reward.BeneficiaryID,
		"wallet_txn_id", txn.ID,
	)
	return nil
}

// OrderBoundApplier 折扣/积分/礼品类奖励：由订单侧按 order_id 读取已使用奖励完成结算，此处仅记录
type OrderBoundApplier struct{}

// ApplyInTx 实现 RewardApplier
func (OrderBoundApplier) ApplyInTx(ctx context.Context, _ *gorm.DB, reward *models.ReferralReward, orderID uint) error {
	logger.Ctx(ctx).Infow("reward_bound_to_order",
		"reward_id", reward.ID,
		"kind", reward.Kind,
		"order_id", orderID,
		"amount", reward.Amount.String(),
	)
	return nil
}

// DefaultRewardAppliers 默认的奖励类型与执行方映射
func DefaultRewardAppliers(wallet *WalletService) map[string]RewardApplier {
	return map[string]RewardApplier{
		constants.RewardKindCredit:   NewCreditRewardApplier(wallet),
		constants.RewardKindDiscount: OrderBoundApplier{},
		constants.RewardKindPoints:   OrderBoundApplier{},
		constants.RewardKindGift:     OrderBoundApplier{},
	}
}
