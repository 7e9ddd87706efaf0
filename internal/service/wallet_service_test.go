package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupWalletServiceTest(t *testing.T) (*WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.MigrateDB(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewWalletService(repository.NewWalletRepository(db)), db
}

func creditOnce(t *testing.T, svc *WalletService, db *gorm.DB, input WalletCreditInput) (*models.WalletAccount, *models.WalletTransaction) {
	t.Helper()
	var account *models.WalletAccount
	var txn *models.WalletTransaction
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		account, txn, err = svc.CreditInTx(tx, input)
		return err
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	return account, txn
}

func TestWalletServiceGetAccountWithoutRows(t *testing.T) {
	svc, _ := setupWalletServiceTest(t)

	account, err := svc.GetAccount(3)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account.ID != 0 || !account.Balance.IsZero() || account.Currency != constants.CurrencyDefault {
		t.Fatalf("expected zero balance view, got %+v", account)
	}
	if _, err := svc.GetAccount(0); !errors.Is(err, ErrWalletAccountNotFound) {
		t.Fatalf("expected ErrWalletAccountNotFound, got %v", err)
	}
}

func TestWalletServiceCreditInTxIsIdempotentByReference(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	input := WalletCreditInput{
		UserID:    9,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("10.005")),
		Currency:  "cny",
		Reference: "referral_reward:1",
		Remark:    " 邀请奖励 ",
		OrderID:   models.UintPtr(88),
	}

	account, txn := creditOnce(t, svc, db, input)
	if account.Balance.String() != "10.01" {
		t.Fatalf("unexpected balance: %s", account.Balance.String())
	}
	if account.Currency != "CNY" {
		t.Fatalf("currency should be normalized, got %s", account.Currency)
	}
	if txn.Type != constants.WalletTxnTypeReferralCredit || txn.Direction != constants.WalletTxnDirectionIn {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
	if txn.BalanceBefore.String() != "0.00" || txn.BalanceAfter.String() != "10.01" {
		t.Fatalf("unexpected balance snapshot: %s -> %s", txn.BalanceBefore.String(), txn.BalanceAfter.String())
	}
	if txn.Remark != "邀请奖励" {
		t.Fatalf("remark should be trimmed, got %q", txn.Remark)
	}

	again, replayed := creditOnce(t, svc, db, input)
	if replayed.ID != txn.ID {
		t.Fatalf("replayed credit should return the original transaction")
	}
	if again.Balance.String() != "10.01" {
		t.Fatalf("replayed credit changed balance: %s", again.Balance.String())
	}

	second := input
	second.Reference = "referral_reward:2"
	second.Amount = models.NewMoneyFromDecimal(decimal.NewFromInt(5))
	second.TxnType = constants.WalletTxnTypeAdminAdjust
	account, _ = creditOnce(t, svc, db, second)
	if account.Balance.String() != "15.01" {
		t.Fatalf("unexpected balance after second credit: %s", account.Balance.String())
	}

	txns, total, err := svc.ListTransactions(repository.WalletTransactionListFilter{Page: 1, PageSize: 10, UserID: 9})
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if total != 2 || len(txns) != 2 {
		t.Fatalf("unexpected transactions: total=%d len=%d", total, len(txns))
	}
}

func TestWalletServiceCreditInTxRejectsBadInput(t *testing.T) {
	svc, db := setupWalletServiceTest(t)

	cases := []struct {
		name  string
		tx    *gorm.DB
		input WalletCreditInput
		want  error
	}{
		{name: "nil tx", tx: nil, input: WalletCreditInput{UserID: 1}, want: ErrInvalidInput},
		{name: "zero user", tx: db, input: WalletCreditInput{}, want: ErrWalletAccountNotFound},
		{
			name:  "zero amount",
			tx:    db,
			input: WalletCreditInput{UserID: 1, Reference: "r"},
			want:  ErrWalletInvalidAmount,
		},
		{
			name:  "missing reference",
			tx:    db,
			input: WalletCreditInput{UserID: 1, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(1))},
			want:  ErrWalletTransactionCreateFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.CreditInTx(tc.tx, tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
