package repository

import (
	"errors"

	"github.com/dujiao-next/redemption/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository 邀请关系数据访问接口
type ReferralRepository interface {
	Create(referral *models.Referral) error
	GetByID(id uint) (*models.Referral, error)
	GetByIDForUpdate(id uint) (*models.Referral, error)
	GetByRecordIDForUpdate(recordID uint) (*models.Referral, error)
	ExistsActiveForReferred(referredID uint) (bool, error)
	List(filter ReferralListFilter) ([]models.Referral, int64, error)
	Update(referral *models.Referral) error
	WithTx(tx *gorm.DB) *GormReferralRepository
}

// GormReferralRepository GORM 实现
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建邀请关系仓库
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) *GormReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Create 创建邀请关系
func (r *GormReferralRepository) Create(referral *models.Referral) error {
	return r.db.Create(referral).Error
}

// GetByID 根据ID获取邀请关系
func (r *GormReferralRepository) GetByID(id uint) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.First(&referral, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByIDForUpdate 根据ID加锁获取邀请关系
func (r *GormReferralRepository) GetByIDForUpdate(id uint) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&referral, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByRecordIDForUpdate 根据兑换记录加锁获取邀请关系
func (r *GormReferralRepository) GetByRecordIDForUpdate(recordID uint) (*models.Referral, error) {
	var referral models.Referral
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("redemption_record_id = ?", recordID).
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// ExistsActiveForReferred 被邀请人是否已有有效邀请关系
func (r *GormReferralRepository) ExistsActiveForReferred(referredID uint) (bool, error) {
	if referredID == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.Referral{}).Where("active_referred_id = ?", referredID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update 更新邀请关系
func (r *GormReferralRepository) Update(referral *models.Referral) error {
	return r.db.Save(referral).Error
}

// List 邀请关系列表
func (r *GormReferralRepository) List(filter ReferralListFilter) ([]models.Referral, int64, error) {
	query := r.db.Model(&models.Referral{})
	if filter.ReferrerID != 0 {
		query = query.Where("referrer_id = ?", filter.ReferrerID)
	}
	if filter.ReferredID != 0 {
		query = query.Where("referred_id = ?", filter.ReferredID)
	}
	if filter.CodeID != 0 {
		query = query.Where("code_id = ?", filter.CodeID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var referrals []models.Referral
	if err := query.Order("id desc").Find(&referrals).Error; err != nil {
		return nil, 0, err
	}
	return referrals, total, nil
}
