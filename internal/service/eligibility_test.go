package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEvaluateEligibilityOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)
	base := func() *models.Code {
		return &models.Code{
			ID:                1,
			Code:              "SAVE10",
			Kind:              constants.CodeKindDiscount,
			IsActive:          true,
			GlobalUsageLimit:  models.IntPtr(5),
			PerUserUsageLimit: models.IntPtr(1),
		}
	}
	redeemer := models.UintPtr(9)

	cases := []struct {
		name   string
		input  func() EligibilityInput
		reason constants.DenialReason
	}{
		{
			name:   "missing code",
			input:  func() EligibilityInput { return EligibilityInput{Now: now} },
			reason: constants.DenialNotFound,
		},
		{
			name: "soft deleted",
			input: func() EligibilityInput {
				code := base()
				code.DeletedAt = gorm.DeletedAt{Time: before, Valid: true}
				return EligibilityInput{Code: code, Now: now}
			},
			reason: constants.DenialNotFound,
		},
		{
			name: "inactive beats expired",
			input: func() EligibilityInput {
				code := base()
				code.IsActive = false
				code.ValidUntil = &before
				return EligibilityInput{Code: code, Now: now}
			},
			reason: constants.DenialInactive,
		},
		{
			name: "not yet started",
			input: func() EligibilityInput {
				code := base()
				code.ValidFrom = &after
				return EligibilityInput{Code: code, Now: now}
			},
			reason: constants.DenialNotYetStarted,
		},
		{
			name: "expired beats limits",
			input: func() EligibilityInput {
				code := base()
				code.ValidUntil = &before
				return EligibilityInput{Code: code, RedeemerID: redeemer, PriorCountForCode: 5, PriorCountForRedeemer: 1, Now: now}
			},
			reason: constants.DenialExpired,
		},
		{
			name: "global limit beats per user",
			input: func() EligibilityInput {
				return EligibilityInput{Code: base(), RedeemerID: redeemer, PriorCountForCode: 5, PriorCountForRedeemer: 1, Now: now}
			},
			reason: constants.DenialGlobalLimitReached,
		},
		{
			name: "per user limit",
			input: func() EligibilityInput {
				return EligibilityInput{Code: base(), RedeemerID: redeemer, PriorCountForCode: 1, PriorCountForRedeemer: 1, Now: now}
			},
			reason: constants.DenialPerUserLimitReached,
		},
		{
			name: "self referral",
			input: func() EligibilityInput {
				code := base()
				code.Kind = constants.CodeKindReferral
				code.OwnerID = models.UintPtr(9)
				code.PerUserUsageLimit = nil
				return EligibilityInput{Code: code, RedeemerID: redeemer, Now: now}
			},
			reason: constants.DenialSelfReferral,
		},
		{
			name: "already referred",
			input: func() EligibilityInput {
				code := base()
				code.Kind = constants.CodeKindReferral
				code.OwnerID = models.UintPtr(3)
				return EligibilityInput{Code: code, RedeemerID: redeemer, RedeemerAlreadyReferred: true, EnforceUniqueReferee: true, Now: now}
			},
			reason: constants.DenialAlreadyReferred,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := EvaluateEligibility(tc.input())
			assert.False(t, decision.Allowed)
			assert.Equal(t, tc.reason, decision.Reason)
		})
	}
}

func TestEvaluateEligibilityAllows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now

	code := &models.Code{Code: "EDGE", Kind: constants.CodeKindDiscount, IsActive: true, ValidUntil: &until}
	decision := EvaluateEligibility(EligibilityInput{Code: code, Now: now})
	assert.True(t, decision.Allowed, "a code is still valid at exactly valid_until")

	referral := &models.Code{Code: "REF12345", Kind: constants.CodeKindReferral, IsActive: true, OwnerID: models.UintPtr(3)}
	decision = EvaluateEligibility(EligibilityInput{Code: referral, RedeemerID: models.UintPtr(4), RedeemerAlreadyReferred: true, Now: now})
	assert.True(t, decision.Allowed, "already referred is ignored when unique referee is off")

	decision = EvaluateEligibility(EligibilityInput{Code: code, PriorCountForRedeemer: 100, Now: now})
	assert.True(t, decision.Allowed, "guests skip the per user check")
}

func TestTxRunnerClassifiesTransientErrors(t *testing.T) {
	locked := errors.New("database is locked (5) (SQLITE_BUSY)")
	err := classifyTxError(context.Background(), locked)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, locked)

	wrapped := fmt.Errorf("redeem: %w", err)
	assert.True(t, IsTransient(wrapped))

	assert.False(t, IsTransient(classifyTxError(context.Background(), ErrCodeNotFound)))
	assert.NoError(t, classifyTxError(context.Background(), nil))

	var runner *TxRunner
	assert.True(t, IsTransient(runner.Run(context.Background(), func(*gorm.DB) error { return nil })))
}
