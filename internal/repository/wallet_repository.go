package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/redemption/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository 钱包数据访问接口
type WalletRepository interface {
	GetAccountByUserID(userID uint) (*models.WalletAccount, error)
	GetAccountByUserIDForUpdate(userID uint) (*models.WalletAccount, error)
	CreateAccount(account *models.WalletAccount) error
	UpdateAccount(account *models.WalletAccount) error
	CreateTransaction(txn *models.WalletTransaction) error
	GetTransactionByReference(reference string) (*models.WalletTransaction, error)
	ListTransactions(filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error)
	WithTx(tx *gorm.DB) *GormWalletRepository
}

// GormWalletRepository GORM 钱包仓储实现
type GormWalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWalletRepository) WithTx(tx *gorm.DB) *GormWalletRepository {
	if tx == nil {
		return r
	}
	return &GormWalletRepository{db: tx}
}

// GetAccountByUserID 按用户ID获取钱包账户
func (r *GormWalletRepository) GetAccountByUserID(userID uint) (*models.WalletAccount, error) {
	return r.getAccount(r.db, userID)
}

// GetAccountByUserIDForUpdate 按用户ID加锁获取钱包账户
func (r *GormWalletRepository) GetAccountByUserIDForUpdate(userID uint) (*models.WalletAccount, error) {
	return r.getAccount(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *GormWalletRepository) getAccount(query *gorm.DB, userID uint) (*models.WalletAccount, error) {
	if userID == 0 {
		return nil, nil
	}
	var account models.WalletAccount
	if err := query.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount 创建钱包账户
func (r *GormWalletRepository) CreateAccount(account *models.WalletAccount) error {
	return r.db.Create(account).Error
}

// UpdateAccount 更新钱包账户
func (r *GormWalletRepository) UpdateAccount(account *models.WalletAccount) error {
	return r.db.Save(account).Error
}

// CreateTransaction 创建钱包流水
func (r *GormWalletRepository) CreateTransaction(txn *models.WalletTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactionByReference 按参考号获取流水
func (r *GormWalletRepository) GetTransactionByReference(reference string) (*models.WalletTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var txn models.WalletTransaction
	if err := r.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// ListTransactions 分页查询钱包流水
func (r *GormWalletRepository) ListTransactions(filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	query := r.db.Model(&models.WalletTransaction{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.WalletTransaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}
