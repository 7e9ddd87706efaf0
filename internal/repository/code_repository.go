package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CodeRepository 兑换码数据访问接口
type CodeRepository interface {
	GetByID(id uint) (*models.Code, error)
	GetByIDForUpdate(id uint) (*models.Code, error)
	GetByIDUnscoped(id uint) (*models.Code, error)
	GetByCode(code string) (*models.Code, error)
	GetActiveReferralByOwner(ownerID uint) (*models.Code, error)
	Create(code *models.Code) error
	Update(code *models.Code) error
	Delete(id uint) error
	List(filter CodeListFilter) ([]models.Code, int64, error)
	IncrementUsageIfAvailable(id uint) (bool, error)
	DecrementUsage(id uint) error
	UpdateStatus(id uint, status string) error
	WithTx(tx *gorm.DB) *GormCodeRepository
}

// GormCodeRepository GORM 实现
type GormCodeRepository struct {
	db *gorm.DB
}

// NewCodeRepository 创建兑换码仓库
func NewCodeRepository(db *gorm.DB) *GormCodeRepository {
	return &GormCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCodeRepository) WithTx(tx *gorm.DB) *GormCodeRepository {
	if tx == nil {
		return r
	}
	return &GormCodeRepository{db: tx}
}

// GetByID 根据ID获取兑换码
func (r *GormCodeRepository) GetByID(id uint) (*models.Code, error) {
	var code models.Code
	if err := r.db.First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetByIDForUpdate 根据ID加锁获取兑换码
func (r *GormCodeRepository) GetByIDForUpdate(id uint) (*models.Code, error) {
	var code models.Code
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetByIDUnscoped 根据ID获取兑换码（包含已软删除）
func (r *GormCodeRepository) GetByIDUnscoped(id uint) (*models.Code, error) {
	var code models.Code
	if err := r.db.Unscoped().First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetByCode 根据码值获取兑换码（区分大小写）
func (r *GormCodeRepository) GetByCode(code string) (*models.Code, error) {
	if code == "" {
		return nil, nil
	}
	var row models.Code
	if err := r.db.Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetActiveReferralByOwner 获取用户当前启用的邀请码
func (r *GormCodeRepository) GetActiveReferralByOwner(ownerID uint) (*models.Code, error) {
	if ownerID == 0 {
		return nil, nil
	}
	var row models.Code
	err := r.db.Where("active_owner_id = ? AND kind = ?", ownerID, constants.CodeKindReferral).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Create 创建兑换码
func (r *GormCodeRepository) Create(code *models.Code) error {
	return r.db.Create(code).Error
}

// Update 更新兑换码
func (r *GormCodeRepository) Update(code *models.Code) error {
	return r.db.Save(code).Error
}

// Delete 软删除兑换码
func (r *GormCodeRepository) Delete(id uint) error {
	return r.db.Delete(&models.Code{}, id).Error
}

// List 兑换码列表
func (r *GormCodeRepository) List(filter CodeListFilter) ([]models.Code, int64, error) {
	query := r.db.Model(&models.Code{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OwnerID != 0 {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		operator := likeOperatorByDialect(dbDialectName(r.db))
		like := "%" + search + "%"
		query = query.Where("code "+operator+" ? OR name "+operator+" ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var codes []models.Code
	if err := query.Order("id desc").Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// IncrementUsageIfAvailable 条件自增已兑换次数，上限已满时返回 false
func (r *GormCodeRepository) IncrementUsageIfAvailable(id uint) (bool, error) {
	result := r.db.Model(&models.Code{}).
		Where("id = ?", id).
		Where("global_usage_limit IS NULL OR global_usage_count < global_usage_limit").
		UpdateColumn("global_usage_count", gorm.Expr("global_usage_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DecrementUsage 回退已兑换次数（已软删除的码同样回退）
func (r *GormCodeRepository) DecrementUsage(id uint) error {
	return r.db.Unscoped().Model(&models.Code{}).
		Where("id = ? AND global_usage_count > 0", id).
		UpdateColumn("global_usage_count", gorm.Expr("global_usage_count - ?", 1)).Error
}

// UpdateStatus 更新状态字段
func (r *GormCodeRepository) UpdateStatus(id uint, status string) error {
	return r.db.Unscoped().Model(&models.Code{}).Where("id = ?", id).UpdateColumn("status", status).Error
}
