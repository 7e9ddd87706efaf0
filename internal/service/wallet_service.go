package service

import (
	"strings"
	"time"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 余额账户服务（邀请奖励入账）
type WalletService struct {
	walletRepo repository.WalletRepository
}

// WalletCreditInput 钱包入账参数
type WalletCreditInput struct {
	UserID    uint
	Amount    models.Money
	Currency  string
	TxnType   string
	Reference string
	Remark    string
	OrderID   *uint
}

// NewWalletService 创建钱包服务
func NewWalletService(walletRepo repository.WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

// GetAccount 获取钱包账户，不存在时返回零余额视图
func (s *WalletService) GetAccount(userID uint) (*models.WalletAccount, error) {
	if userID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	account, err := s.walletRepo.GetAccountByUserID(userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return &models.WalletAccount{
			UserID:   userID,
			Balance:  models.NewMoneyFromDecimal(decimal.Zero),
			Currency: constants.CurrencyDefault,
		}, nil
	}
	return account, nil
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

// CreditInTx 在事务内执行钱包入账，同一参考号只入账一次
func (s *WalletService) CreditInTx(tx *gorm.DB, input WalletCreditInput) (*models.WalletAccount, *models.WalletTransaction, error) {
	if tx == nil {
		return nil, nil, ErrInvalidInput
	}
	if input.UserID == 0 {
		return nil, nil, ErrWalletAccountNotFound
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrWalletInvalidAmount
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, nil, ErrWalletTransactionCreateFailed
	}
	txnType := strings.TrimSpace(input.TxnType)
	if txnType == "" {
		txnType = constants.WalletTxnTypeReferralCredit
	}
	currency := normalizeCurrency(input.Currency)
	now := time.Now()
	repo := s.walletRepo.WithTx(tx)

	exists, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, nil, err
	}
	if exists != nil {
		account, accountErr := repo.GetAccountByUserID(input.UserID)
		if accountErr != nil {
			return nil, nil, accountErr
		}
		return account, exists, nil
	}

	account, err := s.ensureAccountForUpdate(repo, input.UserID, currency, now)
	if err != nil {
		return nil, nil, err
	}
	before := account.Balance.Decimal.Round(2)
	after := before.Add(amount).Round(2)
	account.Balance = models.NewMoneyFromDecimal(after)
	account.UpdatedAt = now
	if err := repo.UpdateAccount(account); err != nil {
		return nil, nil, ErrWalletAccountUpdateFailed
	}

	txn := &models.WalletTransaction{
		UserID:        input.UserID,
		OrderID:       input.OrderID,
		Type:          txnType,
		Direction:     constants.WalletTxnDirectionIn,
		Amount:        models.NewMoneyFromDecimal(amount),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Currency:      currency,
		Reference:     reference,
		Remark:        strings.TrimSpace(input.Remark),
		CreatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, nil, ErrWalletTransactionCreateFailed
	}
	return account, txn, nil
}

func (s *WalletService) ensureAccountForUpdate(repo *repository.GormWalletRepository, userID uint, currency string, now time.Time) (*models.WalletAccount, error) {
	account, err := repo.GetAccountByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	account = &models.WalletAccount{
		UserID:    userID,
		Balance:   models.NewMoneyFromDecimal(decimal.Zero),
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateAccount(account); err != nil {
		return nil, ErrWalletAccountCreateFailed
	}
	return account, nil
}

func normalizeCurrency(currency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	if normalized == "" {
		return constants.CurrencyDefault
	}
	return normalized
}
