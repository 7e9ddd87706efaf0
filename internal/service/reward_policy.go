package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// rewardGrant 解析后的单条奖励规则
type rewardGrant struct {
	beneficiary string
	kind        string
	amount      models.Money
	currency    string
	ttl         time.Duration
}

// RewardPolicy 邀请成功后应发放的奖励
type RewardPolicy struct {
	grants []rewardGrant
}

func validateRewardRule(rule config.ReferralRewardRule) error {
	return validation.ValidateStruct(&rule,
		validation.Field(&rule.Beneficiary, validation.Required,
			validation.In(constants.RewardBeneficiaryReferrer, constants.RewardBeneficiaryReferee)),
		validation.Field(&rule.Kind, validation.Required,
			validation.In(constants.RewardKindDiscount, constants.RewardKindCredit, constants.RewardKindPoints, constants.RewardKindGift)),
		validation.Field(&rule.Amount, validation.Required, validation.By(positiveDecimal)),
		validation.Field(&rule.Currency, validation.When(rule.Kind == constants.RewardKindCredit, validation.Required)),
		validation.Field(&rule.ExpireDays, validation.Min(0)),
	)
}

func positiveDecimal(value interface{}) error {
	raw, _ := value.(string)
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("must be a decimal number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

// NewRewardPolicy 校验并解析奖励规则
func NewRewardPolicy(rules []config.ReferralRewardRule) (*RewardPolicy, error) {
	policy := &RewardPolicy{grants: make([]rewardGrant, 0, len(rules))}
	for idx, rule := range rules {
		rule.Beneficiary = strings.ToLower(strings.TrimSpace(rule.Beneficiary))
		rule.Kind = strings.ToLower(strings.TrimSpace(rule.Kind))
		if err := validateRewardRule(rule); err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", ErrRewardRuleInvalid, idx, err)
		}
		amount, _ := models.NewMoneyFromString(strings.TrimSpace(rule.Amount))
		currency := strings.ToUpper(strings.TrimSpace(rule.Currency))
		policy.grants = append(policy.grants, rewardGrant{
			beneficiary: rule.Beneficiary,
			kind:        rule.Kind,
			amount:      amount,
			currency:    currency,
			ttl:         time.Duration(rule.ExpireDays) * 24 * time.Hour,
		})
	}
	return policy, nil
}

// Issue 为新完成的邀请关系生成待确认奖励
func (p *RewardPolicy) Issue(referral *models.Referral, now time.Time) []models.ReferralReward {
	if p == nil || referral == nil {
		return nil
	}
	rewards := make([]models.ReferralReward, 0, len(p.grants))
	for _, grant := range p.grants {
		beneficiary := referral.ReferrerID
		if grant.beneficiary == constants.RewardBeneficiaryReferee {
			beneficiary = referral.ReferredID
		}
		reward := models.ReferralReward{
			ReferralID:    referral.ID,
			BeneficiaryID: beneficiary,
			Role:          grant.beneficiary,
			Kind:          grant.kind,
			Amount:        grant.amount,
			CurrencyCode:  grant.currency,
			Status:        constants.RewardStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if grant.ttl > 0 {
			expiresAt := now.Add(grant.ttl)
			reward.ExpiresAt = &expiresAt
		}
		rewards = append(rewards, reward)
	}
	return rewards
}
