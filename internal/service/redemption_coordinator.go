package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/redemption/internal/cache"
	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/tracing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// errDenied 事务内命中业务拒绝时用于回滚
var errDenied = errors.New("redemption denied")

// RedeemInput 兑换参数
type RedeemInput struct {
	Code       string
	RedeemerID *uint
	OrderID    *uint
	Amount     models.Money
	Currency   string
}

// RedemptionResult 兑换结果；Success 为 false 时 Reason 给出拒绝原因
type RedemptionResult struct {
	Success  bool                     `json:"success"`
	Reason   constants.DenialReason   `json:"reason,omitempty"`
	RecordID uint                     `json:"record_id,omitempty"`
	Record   *models.RedemptionRecord `json:"record,omitempty"`
	Referral *models.Referral         `json:"referral,omitempty"`
	Rewards  []models.ReferralReward  `json:"rewards,omitempty"`
}

func deniedResult(reason constants.DenialReason) *RedemptionResult {
	return &RedemptionResult{Success: false, Reason: reason}
}

// RewardIssueHook 邀请奖励生成后的后续处理（到期调度、通知）
type RewardIssueHook interface {
	OnRewardsIssued(ctx context.Context, referral *models.Referral, rewards []models.ReferralReward)
}

// RedemptionCoordinatorOptions 兑换协调器选项
type RedemptionCoordinatorOptions struct {
	UniqueReferee bool
	Policy        *RewardPolicy
	CodeCache     *cache.CodeCache
	Notifier      Notifier
}

// RedemptionCoordinator 兑换协调器：资格判定、计数自增与台账写入在同一事务内完成
type RedemptionCoordinator struct {
	runner        *TxRunner
	codeRepo      repository.CodeRepository
	ledgerRepo    repository.RedemptionRepository
	referralRepo  repository.ReferralRepository
	rewardRepo    repository.RewardRepository
	uniqueReferee bool
	policy        *RewardPolicy
	codeCache     *cache.CodeCache
	notifier      Notifier
	rewardHook    RewardIssueHook
	now           func() time.Time
}

// NewRedemptionCoordinator 创建兑换协调器
func NewRedemptionCoordinator(
	runner *TxRunner,
	codeRepo repository.CodeRepository,
	ledgerRepo repository.RedemptionRepository,
	referralRepo repository.ReferralRepository,
	rewardRepo repository.RewardRepository,
	opts RedemptionCoordinatorOptions,
) *RedemptionCoordinator {
	return &RedemptionCoordinator{
		runner:        runner,
		codeRepo:      codeRepo,
		ledgerRepo:    ledgerRepo,
		referralRepo:  referralRepo,
		rewardRepo:    rewardRepo,
		uniqueReferee: opts.UniqueReferee,
		policy:        opts.Policy,
		codeCache:     opts.CodeCache,
		notifier:      opts.Notifier,
		now:           nowUTC,
	}
}

// SetRewardHook 绑定奖励生成回调
func (s *RedemptionCoordinator) SetRewardHook(hook RewardIssueHook) {
	s.rewardHook = hook
}

func validateRedeemInput(input *RedeemInput) error {
	if input.Code == "" || strings.TrimSpace(input.Code) != input.Code {
		return ErrInvalidInput
	}
	if input.RedeemerID != nil && *input.RedeemerID == 0 {
		return ErrInvalidInput
	}
	if input.OrderID != nil && *input.OrderID == 0 {
		return ErrInvalidInput
	}
	if input.Amount.Decimal.IsNegative() {
		return ErrInvalidInput
	}
	input.Currency = normalizeCurrency(input.Currency)
	return nil
}

// lookupCodeID 事务外预查询码值，未找到时返回 0
func (s *RedemptionCoordinator) lookupCodeID(ctx context.Context, code string) (uint, string, error) {
	if snapshot, err := s.codeCache.Get(ctx, code); err != nil {
		logger.Ctx(ctx).Warnw("code_cache_get_failed", "error", err)
	} else if snapshot != nil {
		return snapshot.ID, snapshot.Kind, nil
	}
	row, err := s.codeRepo.GetByCode(code)
	if err != nil {
		return 0, "", classifyTxError(ctx, err)
	}
	if row == nil {
		return 0, "", nil
	}
	if err := s.codeCache.Set(ctx, row); err != nil {
		logger.Ctx(ctx).Warnw("code_cache_set_failed", "error", err)
	}
	return row.ID, row.Kind, nil
}

// Redeem 兑换码值
func (s *RedemptionCoordinator) Redeem(ctx context.Context, input RedeemInput) (result *RedemptionResult, err error) {
	if err := validateRedeemInput(&input); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "redemption.redeem", attribute.String("code", input.Code))
	defer func() { tracing.End(span, err) }()

	codeID, kind, err := s.lookupCodeID(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if codeID == 0 {
		return deniedResult(constants.DenialNotFound), nil
	}
	if kind == constants.CodeKindReferral && input.RedeemerID == nil {
		return nil, ErrRedeemerRequired
	}

	var (
		denial   constants.DenialReason
		record   *models.RedemptionRecord
		referral *models.Referral
		rewards  []models.ReferralReward
		code     *models.Code
	)
	err = s.runner.Run(ctx, func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		now := s.now()

		locked, err := codeRepo.GetByIDForUpdate(codeID)
		if err != nil {
			return err
		}
		if locked != nil && locked.Kind == constants.CodeKindReferral && input.RedeemerID == nil {
			return ErrRedeemerRequired
		}
		eligibility := EligibilityInput{
			Code:                 locked,
			RedeemerID:           input.RedeemerID,
			EnforceUniqueReferee: s.uniqueReferee,
			Now:                  now,
		}
		if locked != nil {
			eligibility.PriorCountForCode = int64(locked.GlobalUsageCount)
			if input.RedeemerID != nil {
				held, err := ledgerRepo.CountHeldByRedeemer(locked.ID, *input.RedeemerID)
				if err != nil {
					return err
				}
				eligibility.PriorCountForRedeemer = held
				if locked.Kind == constants.CodeKindReferral {
					referred, err := s.referralRepo.WithTx(tx).ExistsActiveForReferred(*input.RedeemerID)
					if err != nil {
						return err
					}
					eligibility.RedeemerAlreadyReferred = referred
				}
			}
		}
		decision := EvaluateEligibility(eligibility)
		if !decision.Allowed {
			denial = decision.Reason
			return errDenied
		}

		incremented, err := codeRepo.IncrementUsageIfAvailable(locked.ID)
		if err != nil {
			return err
		}
		if !incremented {
			denial = constants.DenialGlobalLimitReached
			return errDenied
		}
		locked.GlobalUsageCount++

		record = &models.RedemptionRecord{
			RecordNo:         uuid.NewString(),
			CodeID:           locked.ID,
			RedeemerID:       input.RedeemerID,
			OrderID:          input.OrderID,
			AmountAttributed: models.NewMoneyFromDecimal(input.Amount.Decimal),
			Currency:         input.Currency,
			Status:           constants.RedemptionStatusRedeemed,
			RedeemedAt:       now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := ledgerRepo.Create(record); err != nil {
			return ErrRedemptionCreateFailed
		}

		if status := locked.DeriveStatus(now); status != locked.Status {
			if err := codeRepo.UpdateStatus(locked.ID, status); err != nil {
				return err
			}
			locked.Status = status
		}

		if locked.Kind == constants.CodeKindReferral {
			referral, rewards, err = s.completeReferralInTx(tx, locked, record, now)
			if err != nil {
				if repository.IsUniqueViolation(err) {
					denial = constants.DenialAlreadyReferred
					return errDenied
				}
				return err
			}
		}
		code = locked
		return nil
	})
	if errors.Is(err, errDenied) {
		logger.Ctx(ctx).Infow("redemption_denied",
			"code", input.Code,
			"redeemer_id", input.RedeemerID,
			"reason", denial,
		)
		return deniedResult(denial), nil
	}
	if err != nil {
		if IsTransient(err) {
			logger.Ctx(ctx).Warnw("redemption_transient_failure", "code", input.Code, "error", err)
		}
		return nil, err
	}

	logger.Ctx(ctx).Infow("redemption_committed",
		"code", input.Code,
		"record_id", record.ID,
		"redeemer_id", input.RedeemerID,
		"usage_count", code.GlobalUsageCount,
	)
	s.afterRedeem(ctx, code, record, referral, rewards)
	return &RedemptionResult{
		Success:  true,
		RecordID: record.ID,
		Record:   record,
		Referral: referral,
		Rewards:  rewards,
	}, nil
}

func (s *RedemptionCoordinator) completeReferralInTx(tx *gorm.DB, code *models.Code, record *models.RedemptionRecord, now time.Time) (*models.Referral, []models.ReferralReward, error) {
	if code.OwnerID == nil {
		return nil, nil, ErrCodeInvalid
	}
	referral := &models.Referral{
		CodeID:             code.ID,
		RedemptionRecordID: record.ID,
		ReferrerID:         *code.OwnerID,
		ReferredID:         *record.RedeemerID,
		Status:             constants.ReferralStatusCompleted,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if s.uniqueReferee {
		referred := *record.RedeemerID
		referral.ActiveReferredID = &referred
	}
	if err := s.referralRepo.WithTx(tx).Create(referral); err != nil {
		return nil, nil, err
	}
	rewards := s.policy.Issue(referral, now)
	rewardRepo := s.rewardRepo.WithTx(tx)
	for i := range rewards {
		if err := rewardRepo.Create(&rewards[i]); err != nil {
			return nil, nil, err
		}
	}
	return referral, rewards, nil
}

func (s *RedemptionCoordinator) afterRedeem(ctx context.Context, code *models.Code, record *models.RedemptionRecord, referral *models.Referral, rewards []models.ReferralReward) {
	var userID uint
	if record.RedeemerID != nil {
		userID = *record.RedeemerID
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, NotificationEvent{
			EventType: constants.NotificationEventCodeRedeemed,
			BizType:   constants.NotificationBizTypeRedemption,
			BizID:     record.ID,
			UserID:    userID,
			Data: map[string]interface{}{
				"code":        code.Code,
				"record_no":   record.RecordNo,
				"usage_count": code.GlobalUsageCount,
			},
		})
	}
	if referral != nil && s.rewardHook != nil {
		s.rewardHook.OnRewardsIssued(ctx, referral, rewards)
	}
}

// Preview 只读预判兑换资格，不加锁、不写入
func (s *RedemptionCoordinator) Preview(ctx context.Context, codeString string, redeemerID *uint) (Decision, error) {
	if codeString == "" || (redeemerID != nil && *redeemerID == 0) {
		return Decision{}, ErrInvalidInput
	}
	code, err := s.codeRepo.GetByCode(codeString)
	if err != nil {
		return Decision{}, classifyTxError(ctx, err)
	}
	if code != nil && code.Kind == constants.CodeKindReferral && redeemerID == nil {
		return Decision{}, ErrRedeemerRequired
	}
	input := EligibilityInput{
		Code:                 code,
		RedeemerID:           redeemerID,
		EnforceUniqueReferee: s.uniqueReferee,
		Now:                  s.now(),
	}
	if code != nil {
		input.PriorCountForCode = int64(code.GlobalUsageCount)
		if redeemerID != nil {
			held, err := s.ledgerRepo.CountHeldByRedeemer(code.ID, *redeemerID)
			if err != nil {
				return Decision{}, err
			}
			input.PriorCountForRedeemer = held
			if code.Kind == constants.CodeKindReferral {
				referred, err := s.referralRepo.ExistsActiveForReferred(*redeemerID)
				if err != nil {
					return Decision{}, err
				}
				input.RedeemerAlreadyReferred = referred
			}
		}
	}
	return EvaluateEligibility(input), nil
}

// Cancel 作废兑换记录并回退计数
func (s *RedemptionCoordinator) Cancel(ctx context.Context, recordID uint, reason string) (*models.RedemptionRecord, error) {
	return s.void(ctx, recordID, constants.RedemptionStatusCancelled, reason)
}

// Refund 订单退款后标记兑换记录并回退计数
func (s *RedemptionCoordinator) Refund(ctx context.Context, recordID uint, reason string) (*models.RedemptionRecord, error) {
	return s.void(ctx, recordID, constants.RedemptionStatusRefunded, reason)
}

func (s *RedemptionCoordinator) void(ctx context.Context, recordID uint, target string, reason string) (record *models.RedemptionRecord, err error) {
	if recordID == 0 {
		return nil, ErrInvalidInput
	}
	ctx, span := tracing.Start(ctx, "redemption.void", attribute.Int64("record_id", int64(recordID)), attribute.String("target", target))
	defer func() { tracing.End(span, err) }()

	err = s.runner.Run(ctx, func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		now := s.now()

		current, err := ledgerRepo.GetByIDForUpdate(recordID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrRedemptionNotFound
		}
		switch current.Status {
		case constants.RedemptionStatusCancelled, constants.RedemptionStatusRefunded:
			return ErrRedemptionClosed
		}
		code, err := codeRepo.GetByIDForUpdate(current.CodeID)
		if err != nil {
			return err
		}

		wasRedeemed := current.Status == constants.RedemptionStatusRedeemed
		current.Status = target
		current.CancelledAt = &now
		current.CancelReason = strings.TrimSpace(reason)
		current.UpdatedAt = now
		if err := ledgerRepo.Update(current); err != nil {
			return err
		}
		if wasRedeemed {
			if err := codeRepo.DecrementUsage(current.CodeID); err != nil {
				return err
			}
			if code == nil {
				code, err = codeRepo.GetByIDUnscoped(current.CodeID)
				if err != nil {
					return err
				}
			} else if code.GlobalUsageCount > 0 {
				code.GlobalUsageCount--
			}
			if code != nil {
				if status := code.DeriveStatus(now); status != code.Status {
					if err := codeRepo.UpdateStatus(code.ID, status); err != nil {
						return err
					}
				}
			}
		}
		if err := invalidateReferralByRecordInTx(tx, s.referralRepo, s.rewardRepo, current.ID, "redemption "+target, now); err != nil {
			return err
		}
		record = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Infow("redemption_voided", "record_id", record.ID, "status", record.Status)
	if s.notifier != nil {
		var userID uint
		if record.RedeemerID != nil {
			userID = *record.RedeemerID
		}
		s.notifier.Notify(ctx, NotificationEvent{
			EventType: constants.NotificationEventRedemptionVoided,
			BizType:   constants.NotificationBizTypeRedemption,
			BizID:     record.ID,
			UserID:    userID,
			Data:      map[string]interface{}{"status": record.Status},
		})
	}
	return record, nil
}

// AttachOrder 为先兑换后下单的记录绑定订单，只允许绑定一次
func (s *RedemptionCoordinator) AttachOrder(ctx context.Context, recordID, orderID uint) (*models.RedemptionRecord, error) {
	if recordID == 0 || orderID == 0 {
		return nil, ErrInvalidInput
	}
	var record *models.RedemptionRecord
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		current, err := ledgerRepo.GetByIDForUpdate(recordID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrRedemptionNotFound
		}
		switch current.Status {
		case constants.RedemptionStatusCancelled, constants.RedemptionStatusRefunded:
			return ErrRedemptionClosed
		}
		if current.OrderID != nil {
			if *current.OrderID == orderID {
				record = current
				return nil
			}
			return ErrRedemptionOrderAttached
		}
		current.OrderID = &orderID
		current.UpdatedAt = s.now()
		if err := ledgerRepo.Update(current); err != nil {
			return err
		}
		record = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecord 查询兑换记录
func (s *RedemptionCoordinator) GetRecord(recordID uint) (*models.RedemptionRecord, error) {
	record, err := s.ledgerRepo.GetByID(recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRedemptionNotFound
	}
	return record, nil
}

// ListRecords 查询兑换台账
func (s *RedemptionCoordinator) ListRecords(filter repository.RedemptionListFilter) ([]models.RedemptionRecord, int64, error) {
	return s.ledgerRepo.List(filter)
}

// ZeroAmount 未提供归因金额时的默认值
func ZeroAmount() models.Money {
	return models.NewMoneyFromDecimal(decimal.Zero)
}
