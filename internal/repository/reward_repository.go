package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardRepository 邀请奖励数据访问接口
type RewardRepository interface {
	Create(reward *models.ReferralReward) error
	GetByID(id uint) (*models.ReferralReward, error)
	GetByIDForUpdate(id uint) (*models.ReferralReward, error)
	Update(reward *models.ReferralReward) error
	ListByReferral(referralID uint) ([]models.ReferralReward, error)
	List(filter RewardListFilter) ([]models.ReferralReward, int64, error)
	ListDueExpiryIDs(now time.Time, limit int) ([]uint, error)
	WithTx(tx *gorm.DB) *GormRewardRepository
}

// GormRewardRepository GORM 实现
type GormRewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository 创建邀请奖励仓库
func NewRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRewardRepository) WithTx(tx *gorm.DB) *GormRewardRepository {
	if tx == nil {
		return r
	}
	return &GormRewardRepository{db: tx}
}

// Create 创建奖励
func (r *GormRewardRepository) Create(reward *models.ReferralReward) error {
	return r.db.Create(reward).Error
}

// GetByID 根据ID获取奖励
func (r *GormRewardRepository) GetByID(id uint) (*models.ReferralReward, error) {
	var reward models.ReferralReward
	if err := r.db.First(&reward, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// GetByIDForUpdate 根据ID加锁获取奖励
func (r *GormRewardRepository) GetByIDForUpdate(id uint) (*models.ReferralReward, error) {
	var reward models.ReferralReward
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reward, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// Update 更新奖励
func (r *GormRewardRepository) Update(reward *models.ReferralReward) error {
	return r.db.Save(reward).Error
}

// ListByReferral 按邀请关系查询奖励
func (r *GormRewardRepository) ListByReferral(referralID uint) ([]models.ReferralReward, error) {
	var rewards []models.ReferralReward
	if err := r.db.Where("referral_id = ?", referralID).Order("id asc").Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// List 奖励列表
func (r *GormRewardRepository) List(filter RewardListFilter) ([]models.ReferralReward, int64, error) {
	query := r.db.Model(&models.ReferralReward{})
	if filter.BeneficiaryID != 0 {
		query = query.Where("beneficiary_id = ?", filter.BeneficiaryID)
	}
	if filter.ReferralID != 0 {
		query = query.Where("referral_id = ?", filter.ReferralID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rewards []models.ReferralReward
	if err := query.Order("id desc").Find(&rewards).Error; err != nil {
		return nil, 0, err
	}
	return rewards, total, nil
}

// ListDueExpiryIDs 查询已到期但仍未终结的奖励
func (r *GormRewardRepository) ListDueExpiryIDs(now time.Time, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uint
	err := r.db.Model(&models.ReferralReward{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?",
			[]string{constants.RewardStatusPending, constants.RewardStatusActive}, now).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
