package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/dujiao-next/redemption/internal/cache"
	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/repository"

	"gorm.io/gorm"
)

const (
	referralCodeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	minReferralCodeLength    = 8
	defaultReferralMintRetry = 8
	referralCodePerUserLimit = 1
	referralCodeNamePrefix   = "referral:"
)

// errCodeCollision 候选码已被占用
var errCodeCollision = errors.New("referral code collision")

// CodeGenerator 候选码生成函数
type CodeGenerator func(length int) (string, error)

// MintOptions 生成邀请码选项
type MintOptions struct {
	ForceNew bool // 停用当前邀请码并生成新码
}

// ReferralCodeMinter 邀请码生成器，保证每个用户至多一个启用中的邀请码
type ReferralCodeMinter struct {
	runner      *TxRunner
	codeRepo    repository.CodeRepository
	codeCache   *cache.CodeCache
	length      int
	maxAttempts int
	generate    CodeGenerator
	now         func() time.Time
}

// NewReferralCodeMinter 创建邀请码生成器
func NewReferralCodeMinter(runner *TxRunner, codeRepo repository.CodeRepository, codeCache *cache.CodeCache, length, maxAttempts int) *ReferralCodeMinter {
	if length < minReferralCodeLength {
		length = minReferralCodeLength
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultReferralMintRetry
	}
	return &ReferralCodeMinter{
		runner:      runner,
		codeRepo:    codeRepo,
		codeCache:   codeCache,
		length:      length,
		maxAttempts: maxAttempts,
		generate:    generateReferralCode,
		now:         nowUTC,
	}
}

// SetGenerator 替换候选码生成函数
func (m *ReferralCodeMinter) SetGenerator(gen CodeGenerator) {
	if gen != nil {
		m.generate = gen
	}
}

// Current 返回用户当前启用中的邀请码
func (m *ReferralCodeMinter) Current(ownerID uint) (*models.Code, error) {
	if ownerID == 0 {
		return nil, ErrInvalidInput
	}
	return m.codeRepo.GetActiveReferralByOwner(ownerID)
}

// Mint 为用户生成邀请码；已有启用中的邀请码且未要求换新时直接返回旧码，created 为 false
func (m *ReferralCodeMinter) Mint(ctx context.Context, ownerID uint, opts MintOptions) (*models.Code, bool, error) {
	if ownerID == 0 {
		return nil, false, ErrInvalidInput
	}
	if !opts.ForceNew {
		existing, err := m.codeRepo.GetActiveReferralByOwner(ownerID)
		if err != nil {
			return nil, false, classifyTxError(ctx, err)
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		candidate, err := m.generate(m.length)
		if err != nil {
			return nil, false, err
		}
		code, replaced, err := m.tryMint(ctx, ownerID, candidate, opts.ForceNew)
		if err == nil {
			if replaced != "" {
				if cacheErr := m.codeCache.Invalidate(ctx, replaced); cacheErr != nil {
					logger.Ctx(ctx).Warnw("code_cache_invalidate_failed", "code", replaced, "error", cacheErr)
				}
			}
			logger.Ctx(ctx).Infow("referral_code_minted", "owner_id", ownerID, "code_id", code.ID, "attempt", attempt)
			return code, true, nil
		}
		if errors.Is(err, errCodeCollision) {
			logger.Ctx(ctx).Debugw("referral_code_collision", "owner_id", ownerID, "attempt", attempt)
			continue
		}
		if repository.IsUniqueViolation(err) {
			// 并发生成时另一请求已写入启用中的邀请码
			if !opts.ForceNew {
				existing, lookupErr := m.codeRepo.GetActiveReferralByOwner(ownerID)
				if lookupErr != nil {
					return nil, false, classifyTxError(ctx, lookupErr)
				}
				if existing != nil {
					return existing, false, nil
				}
			}
			continue
		}
		return nil, false, err
	}
	logger.Ctx(ctx).Errorw("referral_code_generation_exhausted", "owner_id", ownerID, "attempts", m.maxAttempts)
	return nil, false, ErrGenerationExhausted
}

func (m *ReferralCodeMinter) tryMint(ctx context.Context, ownerID uint, candidate string, forceNew bool) (*models.Code, string, error) {
	var (
		created  *models.Code
		replaced string
	)
	err := m.runner.Run(ctx, func(tx *gorm.DB) error {
		codeRepo := m.codeRepo.WithTx(tx)
		now := m.now()

		taken, err := codeRepo.GetByCode(candidate)
		if err != nil {
			return err
		}
		if taken != nil {
			return errCodeCollision
		}

		if forceNew {
			current, err := codeRepo.GetActiveReferralByOwner(ownerID)
			if err != nil {
				return err
			}
			if current != nil {
				current.IsActive = false
				current.SyncActiveOwner()
				current.Status = current.DeriveStatus(now)
				current.UpdatedAt = now
				if err := codeRepo.Update(current); err != nil {
					return err
				}
				replaced = current.Code
			}
		}

		owner := ownerID
		code := &models.Code{
			Code:              candidate,
			Kind:              constants.CodeKindReferral,
			Name:              referralCodeNamePrefix + candidate,
			OwnerID:           &owner,
			PerUserUsageLimit: models.IntPtr(referralCodePerUserLimit),
			IsActive:          true,
			Status:            constants.CodeStatusActive,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		code.SyncActiveOwner()
		if err := codeRepo.Create(code); err != nil {
			return err
		}
		created = code
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return created, replaced, nil
}

func generateReferralCode(length int) (string, error) {
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}
