package repository

import (
	"testing"
	"time"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"

	"github.com/shopspring/decimal"
)

func TestWalletRepositoryAccountLookup(t *testing.T) {
	db := setupRepositoryTestDB(t, "wallet_repo_account")
	repo := NewWalletRepository(db)

	account, err := repo.GetAccountByUserID(7)
	if err != nil {
		t.Fatalf("get missing account failed: %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil account, got %+v", account)
	}

	created := &models.WalletAccount{
		UserID:   7,
		Balance:  models.NewMoneyFromDecimal(decimal.RequireFromString("3.50")),
		Currency: constants.CurrencyDefault,
	}
	if err := repo.CreateAccount(created); err != nil {
		t.Fatalf("create account failed: %v", err)
	}

	locked, err := repo.GetAccountByUserIDForUpdate(7)
	if err != nil {
		t.Fatalf("get account for update failed: %v", err)
	}
	if locked == nil || locked.ID != created.ID {
		t.Fatalf("unexpected account: %+v", locked)
	}
	if locked.Balance.StringFixed(2) != "3.50" {
		t.Fatalf("unexpected balance: %s", locked.Balance.String())
	}
}

func TestWalletRepositoryTransactionReferenceAndFilters(t *testing.T) {
	db := setupRepositoryTestDB(t, "wallet_repo_txn")
	repo := NewWalletRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	rows := []models.WalletTransaction{
		{UserID: 1, Type: constants.WalletTxnTypeReferralCredit, Reference: "reward:1", CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: 1, Type: constants.WalletTxnTypeAdminAdjust, Reference: "adjust:1", CreatedAt: now.Add(-time.Hour)},
		{UserID: 2, Type: constants.WalletTxnTypeReferralCredit, Reference: "reward:2", CreatedAt: now},
	}
	for i := range rows {
		rows[i].Direction = constants.WalletTxnDirectionIn
		rows[i].Currency = constants.CurrencyDefault
		rows[i].Amount = models.NewMoneyFromDecimal(decimal.NewFromInt(5))
		if err := repo.CreateTransaction(&rows[i]); err != nil {
			t.Fatalf("create transaction %d failed: %v", i, err)
		}
	}

	dup := rows[0]
	dup.ID = 0
	if err := repo.CreateTransaction(&dup); err == nil || !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation on duplicate reference, got %v", err)
	}

	found, err := repo.GetTransactionByReference(" reward:2 ")
	if err != nil {
		t.Fatalf("get by reference failed: %v", err)
	}
	if found == nil || found.UserID != 2 {
		t.Fatalf("unexpected transaction: %+v", found)
	}
	if missing, err := repo.GetTransactionByReference(""); err != nil || missing != nil {
		t.Fatalf("empty reference should return nil, got %+v, %v", missing, err)
	}

	list, total, err := repo.ListTransactions(WalletTransactionListFilter{Page: 1, PageSize: 10, UserID: 1})
	if err != nil {
		t.Fatalf("list by user failed: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("unexpected user list: total=%d len=%d", total, len(list))
	}
	if list[0].Reference != "adjust:1" {
		t.Fatalf("expected newest first, got %s", list[0].Reference)
	}

	from := now.Add(-90 * time.Minute)
	list, total, err = repo.ListTransactions(WalletTransactionListFilter{
		Page:     1,
		PageSize: 10,
		Type:     constants.WalletTxnTypeReferralCredit,
		From:     &from,
	})
	if err != nil {
		t.Fatalf("list by type and time failed: %v", err)
	}
	if total != 1 || list[0].Reference != "reward:2" {
		t.Fatalf("unexpected filtered list: total=%d %+v", total, list)
	}
}
