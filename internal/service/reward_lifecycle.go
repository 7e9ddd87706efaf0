package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/queue"
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const defaultRewardSweepBatch = 200

// RewardResult 奖励状态变更结果
type RewardResult struct {
	Success bool                   `json:"success"`
	Reason  constants.DenialReason `json:"reason,omitempty"`
	Reward  *models.ReferralReward `json:"reward,omitempty"`
}

// RewardLifecycleManager 奖励状态机：pending -> active -> applied，任意非终态可 expired / cancelled
type RewardLifecycleManager struct {
	runner       *TxRunner
	referralRepo repository.ReferralRepository
	rewardRepo   repository.RewardRepository
	appliers     map[string]RewardApplier
	notifier     Notifier
	queueClient  *queue.Client
	sweepBatch   int
	now          func() time.Time
}

// NewRewardLifecycleManager 创建奖励状态机
func NewRewardLifecycleManager(
	runner *TxRunner,
	referralRepo repository.ReferralRepository,
	rewardRepo repository.RewardRepository,
	appliers map[string]RewardApplier,
	notifier Notifier,
	queueClient *queue.Client,
	sweepBatch int,
) *RewardLifecycleManager {
	if sweepBatch <= 0 {
		sweepBatch = defaultRewardSweepBatch
	}
	return &RewardLifecycleManager{
		runner:       runner,
		referralRepo: referralRepo,
		rewardRepo:   rewardRepo,
		appliers:     appliers,
		notifier:     notifier,
		queueClient:  queueClient,
		sweepBatch:   sweepBatch,
		now:          nowUTC,
	}
}

func markRewardExpired(reward *models.ReferralReward, now time.Time) {
	reward.Status = constants.RewardStatusExpired
	reward.ExpiredAt = &now
	reward.UpdatedAt = now
}

func (m *RewardLifecycleManager) lockReward(tx *gorm.DB, rewardID uint) (*models.ReferralReward, error) {
	reward, err := m.rewardRepo.WithTx(tx).GetByIDForUpdate(rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

// Activate 激活待确认奖励；已激活时幂等返回成功
func (m *RewardLifecycleManager) Activate(ctx context.Context, rewardID uint) (*RewardResult, error) {
	if rewardID == 0 {
		return nil, ErrInvalidInput
	}
	result := &RewardResult{}
	err := m.runner.Run(ctx, func(tx *gorm.DB) error {
		now := m.now()
		reward, err := m.lockReward(tx, rewardID)
		if err != nil {
			return err
		}
		result.Reward = reward
		if reward.IsTerminal() {
			result.Reason = constants.DenialAlreadyTerminal
			return nil
		}
		if reward.ExpiredAtTime(now) {
			markRewardExpired(reward, now)
			result.Reason = constants.DenialExpired
			return m.rewardRepo.WithTx(tx).Update(reward)
		}
		if reward.Status == constants.RewardStatusActive {
			result.Success = true
			return nil
		}
		reward.Status = constants.RewardStatusActive
		reward.UpdatedAt = now
		if err := m.rewardRepo.WithTx(tx).Update(reward); err != nil {
			return err
		}
		result.Success = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Success {
		m.notifyReward(ctx, constants.NotificationEventRewardActivated, result.Reward)
	} else if result.Reason == constants.DenialExpired {
		m.notifyReward(ctx, constants.NotificationEventRewardExpired, result.Reward)
	}
	return result, nil
}

// ConfirmReferral 确认邀请关系合格，并激活其下待确认奖励
func (m *RewardLifecycleManager) ConfirmReferral(ctx context.Context, referralID uint) (*models.Referral, []models.ReferralReward, error) {
	if referralID == 0 {
		return nil, nil, ErrInvalidInput
	}
	var (
		referral  *models.Referral
		rewards   []models.ReferralReward
		activated []models.ReferralReward
	)
	err := m.runner.Run(ctx, func(tx *gorm.DB) error {
		now := m.now()
		referralRepo := m.referralRepo.WithTx(tx)
		rewardRepo := m.rewardRepo.WithTx(tx)

		current, err := referralRepo.GetByIDForUpdate(referralID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrReferralNotFound
		}
		if current.Status == constants.ReferralStatusInvalidated {
			return ErrReferralInvalidated
		}
		if current.Status != constants.ReferralStatusQualified {
			current.Status = constants.ReferralStatusQualified
			current.QualifiedAt = &now
			current.UpdatedAt = now
			if err := referralRepo.Update(current); err != nil {
				return err
			}
		}
		rows, err := rewardRepo.ListByReferral(current.ID)
		if err != nil {
			return err
		}
		for i := range rows {
			reward := &rows[i]
			if reward.Status != constants.RewardStatusPending {
				continue
			}
			locked, err := m.lockReward(tx, reward.ID)
			if err != nil {
				return err
			}
			if locked.Status != constants.RewardStatusPending {
				*reward = *locked
				continue
			}
			if locked.ExpiredAtTime(now) {
				markRewardExpired(locked, now)
			} else {
				locked.Status = constants.RewardStatusActive
				locked.UpdatedAt = now
				activated = append(activated, *locked)
			}
			if err := rewardRepo.Update(locked); err != nil {
				return err
			}
			*reward = *locked
		}
		referral = current
		rewards = rows
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Ctx(ctx).Infow("referral_confirmed", "referral_id", referral.ID, "activated", len(activated))
	for i := range activated {
		m.notifyReward(ctx, constants.NotificationEventRewardActivated, &activated[i])
	}
	return referral, rewards, nil
}

// Apply 将已激活奖励用于订单，奖励只能使用一次
func (m *RewardLifecycleManager) Apply(ctx context.Context, rewardID, orderID uint) (result *RewardResult, err error) {
	if rewardID == 0 || orderID == 0 {
		return nil, ErrInvalidInput
	}
	ctx, span := tracing.Start(ctx, "reward.apply",
		attribute.Int64("reward_id", int64(rewardID)),
		attribute.Int64("order_id", int64(orderID)),
	)
	defer func() { tracing.End(span, err) }()

	result = &RewardResult{}
	err = m.runner.Run(ctx, func(tx *gorm.DB) error {
		now := m.now()
		reward, err := m.lockReward(tx, rewardID)
		if err != nil {
			return err
		}
		result.Reward = reward
		if reward.IsTerminal() {
			result.Reason = constants.DenialAlreadyTerminal
			return nil
		}
		if reward.ExpiredAtTime(now) {
			markRewardExpired(reward, now)
			result.Reason = constants.DenialExpired
			return m.rewardRepo.WithTx(tx).Update(reward)
		}
		if reward.Status != constants.RewardStatusActive {
			result.Reason = constants.DenialInactive
			return nil
		}
		applier, ok := m.appliers[reward.Kind]
		if !ok || applier == nil {
			return ErrRewardNoApplier
		}
		if err := applier.ApplyInTx(ctx, tx, reward, orderID); err != nil {
			if errors.Is(err, ErrTransient) || repository.IsTransientDBError(err) {
				return err
			}
			logger.Ctx(ctx).Warnw("reward_apply_failed", "reward_id", reward.ID, "error", err)
			return ErrRewardApplyFailed
		}
		reward.Status = constants.RewardStatusApplied
		reward.AppliedAt = &now
		reward.OrderID = &orderID
		reward.UpdatedAt = now
		if err := m.rewardRepo.WithTx(tx).Update(reward); err != nil {
			return err
		}
		result.Success = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch {
	case result.Success:
		logger.Ctx(ctx).Infow("reward_applied", "reward_id", rewardID, "order_id", orderID)
		m.notifyReward(ctx, constants.NotificationEventRewardApplied, result.Reward)
	case result.Reason == constants.DenialExpired:
		m.notifyReward(ctx, constants.NotificationEventRewardExpired, result.Reward)
	}
	return result, nil
}

// Cancel 取消非终态奖励
func (m *RewardLifecycleManager) Cancel(ctx context.Context, rewardID uint, reason string) (*RewardResult, error) {
	if rewardID == 0 {
		return nil, ErrInvalidInput
	}
	result := &RewardResult{}
	err := m.runner.Run(ctx, func(tx *gorm.DB) error {
		now := m.now()
		reward, err := m.lockReward(tx, rewardID)
		if err != nil {
			return err
		}
		result.Reward = reward
		if reward.IsTerminal() {
			result.Reason = constants.DenialAlreadyTerminal
			return nil
		}
		if reward.ExpiredAtTime(now) {
			markRewardExpired(reward, now)
			result.Reason = constants.DenialExpired
			return m.rewardRepo.WithTx(tx).Update(reward)
		}
		reward.Status = constants.RewardStatusCancelled
		reward.CancelReason = strings.TrimSpace(reason)
		reward.UpdatedAt = now
		if err := m.rewardRepo.WithTx(tx).Update(reward); err != nil {
			return err
		}
		result.Success = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Reason == constants.DenialExpired {
		m.notifyReward(ctx, constants.NotificationEventRewardExpired, result.Reward)
	}
	return result, nil
}

// InvalidateReferral 作废邀请关系并取消其下未终结奖励，已使用的奖励保持不变
func (m *RewardLifecycleManager) InvalidateReferral(ctx context.Context, referralID uint, reason string) (*models.Referral, error) {
	if referralID == 0 {
		return nil, ErrInvalidInput
	}
	var referral *models.Referral
	err := m.runner.Run(ctx, func(tx *gorm.DB) error {
		current, err := m.referralRepo.WithTx(tx).GetByIDForUpdate(referralID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrReferralNotFound
		}
		if err := invalidateReferralInTx(tx, m.referralRepo, m.rewardRepo, current, reason, m.now()); err != nil {
			return err
		}
		referral = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return referral, nil
}

// invalidateReferralByRecordInTx 兑换记录作废时联动作废邀请关系
func invalidateReferralByRecordInTx(tx *gorm.DB, referralRepo repository.ReferralRepository, rewardRepo repository.RewardRepository, recordID uint, reason string, now time.Time) error {
	referral, err := referralRepo.WithTx(tx).GetByRecordIDForUpdate(recordID)
	if err != nil {
		return err
	}
	if referral == nil {
		return nil
	}
	return invalidateReferralInTx(tx, referralRepo, rewardRepo, referral, reason, now)
}

func invalidateReferralInTx(tx *gorm.DB, referralRepo repository.ReferralRepository, rewardRepo repository.RewardRepository, referral *models.Referral, reason string, now time.Time) error {
	if referral.Status == constants.ReferralStatusInvalidated {
		return nil
	}
	reason = strings.TrimSpace(reason)
	referral.Status = constants.ReferralStatusInvalidated
	referral.ActiveReferredID = nil
	referral.InvalidatedAt = &now
	referral.InvalidReason = reason
	referral.UpdatedAt = now
	if err := referralRepo.WithTx(tx).Update(referral); err != nil {
		return err
	}
	txRewardRepo := rewardRepo.WithTx(tx)
	rewards, err := txRewardRepo.ListByReferral(referral.ID)
	if err != nil {
		return err
	}
	for i := range rewards {
		reward := &rewards[i]
		if reward.IsTerminal() {
			continue
		}
		if reward.ExpiredAtTime(now) {
			markRewardExpired(reward, now)
		} else {
			reward.Status = constants.RewardStatusCancelled
			reward.CancelReason = reason
			reward.UpdatedAt = now
		}
		if err := txRewardRepo.Update(reward); err != nil {
			return err
		}
	}
	return nil
}

// GetStored 按库内原样读取奖励，不触发到期处理
func (m *RewardLifecycleManager) GetStored(rewardID uint) (*models.ReferralReward, error) {
	reward, err := m.rewardRepo.GetByID(rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

// Get 查询奖励；已到期未终结的奖励在读取时落为 expired
func (m *RewardLifecycleManager) Get(ctx context.Context, rewardID uint) (*models.ReferralReward, error) {
	reward, err := m.GetStored(rewardID)
	if err != nil {
		return nil, err
	}
	if reward.IsTerminal() || !reward.ExpiredAtTime(m.now()) {
		return reward, nil
	}
	if _, err := m.ExpireOne(ctx, reward.ID); err != nil {
		return nil, err
	}
	return m.rewardRepo.GetByID(rewardID)
}

// List 查询奖励列表，读取时同样处理到期
func (m *RewardLifecycleManager) List(ctx context.Context, filter repository.RewardListFilter) ([]models.ReferralReward, int64, error) {
	rewards, total, err := m.rewardRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	now := m.now()
	for i := range rewards {
		reward := &rewards[i]
		if reward.IsTerminal() || !reward.ExpiredAtTime(now) {
			continue
		}
		expired, err := m.ExpireOne(ctx, reward.ID)
		if err != nil {
			return nil, 0, err
		}
		if expired {
			markRewardExpired(reward, now)
		}
	}
	return rewards, total, nil
}

// ListReferrals 查询邀请关系
func (m *RewardLifecycleManager) ListReferrals(filter repository.ReferralListFilter) ([]models.Referral, int64, error) {
	return m.referralRepo.List(filter)
}

// ExpireOne 将单个到期奖励落为 expired；未到期或已终结时返回 false
func (m *RewardLifecycleManager) ExpireOne(ctx context.Context, rewardID uint) (bool, error) {
	var expired *models.ReferralReward
	err := m.runner.Run(ctx, func(tx *gorm.DB) error {
		now := m.now()
		reward, err := m.lockReward(tx, rewardID)
		if err != nil {
			return err
		}
		if reward.IsTerminal() || !reward.ExpiredAtTime(now) {
			return nil
		}
		markRewardExpired(reward, now)
		if err := m.rewardRepo.WithTx(tx).Update(reward); err != nil {
			return err
		}
		expired = reward
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired == nil {
		return false, nil
	}
	m.notifyReward(ctx, constants.NotificationEventRewardExpired, expired)
	return true, nil
}

// ExpireDue 批量处理到期奖励，返回本轮落为 expired 的数量
func (m *RewardLifecycleManager) ExpireDue(ctx context.Context) (int, error) {
	ids, err := m.rewardRepo.ListDueExpiryIDs(m.now(), m.sweepBatch)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		expired, err := m.ExpireOne(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRewardNotFound) {
				continue
			}
			logger.Ctx(ctx).Warnw("reward_expire_failed", "reward_id", id, "error", err)
			continue
		}
		if expired {
			count++
		}
	}
	return count, nil
}

// OnRewardsIssued 实现 RewardIssueHook：通知邀请人并登记到期任务
func (m *RewardLifecycleManager) OnRewardsIssued(ctx context.Context, referral *models.Referral, rewards []models.ReferralReward) {
	if referral == nil {
		return
	}
	if m.notifier != nil {
		m.notifier.Notify(ctx, NotificationEvent{
			EventType: constants.NotificationEventReferralComplete,
			BizType:   constants.NotificationBizTypeReward,
			BizID:     referral.ID,
			UserID:    referral.ReferrerID,
			Data: map[string]interface{}{
				"referred_id":  referral.ReferredID,
				"reward_count": len(rewards),
			},
		})
	}
	if m.queueClient == nil || !m.queueClient.Enabled() {
		return
	}
	now := m.now()
	for _, reward := range rewards {
		if reward.ID == 0 || reward.ExpiresAt == nil {
			continue
		}
		delay := reward.ExpiresAt.Sub(now)
		if delay < 0 {
			delay = 0
		}
		if err := m.queueClient.EnqueueRewardExpire(queue.RewardExpirePayload{RewardID: reward.ID}, delay); err != nil {
			logger.Ctx(ctx).Warnw("reward_expire_enqueue_failed", "reward_id", reward.ID, "error", err)
		}
	}
}

func (m *RewardLifecycleManager) notifyReward(ctx context.Context, eventType string, reward *models.ReferralReward) {
	if m.notifier == nil || reward == nil {
		return
	}
	m.notifier.Notify(ctx, NotificationEvent{
		EventType: eventType,
		BizType:   constants.NotificationBizTypeReward,
		BizID:     reward.ID,
		UserID:    reward.BeneficiaryID,
		Data: map[string]interface{}{
			"kind":   reward.Kind,
			"amount": reward.Amount.String(),
			"status": reward.Status,
		},
	})
}
