package repository

import (
	"errors"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedemptionRepository 兑换台账数据访问接口
type RedemptionRepository interface {
	Create(record *models.RedemptionRecord) error
	GetByID(id uint) (*models.RedemptionRecord, error)
	GetByIDForUpdate(id uint) (*models.RedemptionRecord, error)
	Update(record *models.RedemptionRecord) error
	CountHeldByRedeemer(codeID, redeemerID uint) (int64, error)
	CountRedeemed(codeID uint) (int64, error)
	List(filter RedemptionListFilter) ([]models.RedemptionRecord, int64, error)
	WithTx(tx *gorm.DB) *GormRedemptionRepository
}

// GormRedemptionRepository GORM 实现
type GormRedemptionRepository struct {
	db *gorm.DB
}

// NewRedemptionRepository 创建兑换台账仓库
func NewRedemptionRepository(db *gorm.DB) *GormRedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRedemptionRepository) WithTx(tx *gorm.DB) *GormRedemptionRepository {
	if tx == nil {
		return r
	}
	return &GormRedemptionRepository{db: tx}
}

// Create 写入兑换记录
func (r *GormRedemptionRepository) Create(record *models.RedemptionRecord) error {
	return r.db.Create(record).Error
}

// GetByID 根据ID获取兑换记录
func (r *GormRedemptionRepository) GetByID(id uint) (*models.RedemptionRecord, error) {
	var record models.RedemptionRecord
	if err := r.db.Preload("Code").First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByIDForUpdate 根据ID加锁获取兑换记录
func (r *GormRedemptionRepository) GetByIDForUpdate(id uint) (*models.RedemptionRecord, error) {
	var record models.RedemptionRecord
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Update 更新兑换记录
func (r *GormRedemptionRepository) Update(record *models.RedemptionRecord) error {
	return r.db.Omit("Code").Save(record).Error
}

// CountHeldByRedeemer 统计用户占用名额的记录（pending + redeemed）
func (r *GormRedemptionRepository) CountHeldByRedeemer(codeID, redeemerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.RedemptionRecord{}).
		Where("code_id = ? AND redeemer_id = ? AND status IN ?", codeID, redeemerID,
			[]string{constants.RedemptionStatusPending, constants.RedemptionStatusRedeemed}).
		Count(&count).Error
	return count, err
}

// CountRedeemed 统计已兑换记录数
func (r *GormRedemptionRepository) CountRedeemed(codeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.RedemptionRecord{}).
		Where("code_id = ? AND status = ?", codeID, constants.RedemptionStatusRedeemed).
		Count(&count).Error
	return count, err
}

// List 兑换记录列表
func (r *GormRedemptionRepository) List(filter RedemptionListFilter) ([]models.RedemptionRecord, int64, error) {
	query := r.db.Model(&models.RedemptionRecord{})
	if filter.CodeID != 0 {
		query = query.Where("code_id = ?", filter.CodeID)
	}
	if filter.RedeemerID != 0 {
		query = query.Where("redeemer_id = ?", filter.RedeemerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var records []models.RedemptionRecord
	if err := query.Preload("Code").Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
