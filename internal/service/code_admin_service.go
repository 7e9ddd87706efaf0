package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dujiao-next/redemption/internal/cache"
	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/logger"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/repository"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CodeAdminService 兑换码管理（创建、修改、启停、删除）
type CodeAdminService struct {
	runner    *TxRunner
	codeRepo  repository.CodeRepository
	codeCache *cache.CodeCache
	now       func() time.Time
}

// NewCodeAdminService 创建兑换码管理服务
func NewCodeAdminService(runner *TxRunner, codeRepo repository.CodeRepository, codeCache *cache.CodeCache) *CodeAdminService {
	return &CodeAdminService{
		runner:    runner,
		codeRepo:  codeRepo,
		codeCache: codeCache,
		now:       nowUTC,
	}
}

// CreateCodeInput 创建兑换码输入
type CreateCodeInput struct {
	Code              string
	Kind              string
	Name              string
	OwnerID           *uint
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	GlobalUsageLimit  *int
	PerUserUsageLimit *int
	IsActive          *bool
}

// UpdateCodeInput 更新兑换码输入，码值、类型与所有者创建后不可修改
type UpdateCodeInput struct {
	Name              string
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	GlobalUsageLimit  *int
	PerUserUsageLimit *int
	IsActive          *bool
}

func positiveLimit(value interface{}) error {
	limit, ok := value.(*int)
	if !ok || limit == nil {
		return nil
	}
	if *limit < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

func validWindow(from, until *time.Time) validation.RuleFunc {
	return func(interface{}) error {
		if from != nil && until != nil && until.Before(*from) {
			return errors.New("must not be earlier than valid_from")
		}
		return nil
	}
}

// Validate 校验创建参数
func (in *CreateCodeInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Code, validation.Required, validation.Length(3, 64), validation.Match(codePattern)),
		validation.Field(&in.Kind, validation.Required, validation.In(constants.CodeKindDiscount, constants.CodeKindReferral)),
		validation.Field(&in.Name, validation.Length(0, 120)),
		validation.Field(&in.OwnerID, validation.When(in.Kind == constants.CodeKindReferral, validation.Required)),
		validation.Field(&in.ValidUntil, validation.By(validWindow(in.ValidFrom, in.ValidUntil))),
		validation.Field(&in.GlobalUsageLimit, validation.By(positiveLimit)),
		validation.Field(&in.PerUserUsageLimit, validation.By(positiveLimit)),
	)
}

// Validate 校验更新参数
func (in *UpdateCodeInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Length(0, 120)),
		validation.Field(&in.ValidUntil, validation.By(validWindow(in.ValidFrom, in.ValidUntil))),
		validation.Field(&in.GlobalUsageLimit, validation.By(positiveLimit)),
		validation.Field(&in.PerUserUsageLimit, validation.By(positiveLimit)),
	)
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func toUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// Create 创建兑换码
func (s *CodeAdminService) Create(ctx context.Context, input CreateCodeInput) (*models.Code, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Kind = strings.ToLower(strings.TrimSpace(input.Kind))
	input.Name = strings.TrimSpace(input.Name)
	if err := input.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if input.Kind == constants.CodeKindDiscount {
		input.OwnerID = nil
	}

	now := s.now()
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	code := &models.Code{
		Code:              input.Code,
		Kind:              input.Kind,
		Name:              input.Name,
		OwnerID:           input.OwnerID,
		ValidFrom:         toUTCPtr(input.ValidFrom),
		ValidUntil:        toUTCPtr(input.ValidUntil),
		GlobalUsageLimit:  input.GlobalUsageLimit,
		PerUserUsageLimit: input.PerUserUsageLimit,
		IsActive:          isActive,
		Status:            constants.CodeStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	code.SyncActiveOwner()
	code.Status = code.DeriveStatus(now)

	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)
		exist, err := codeRepo.GetByCode(code.Code)
		if err != nil {
			return err
		}
		if exist != nil {
			return ErrCodeExists
		}
		return codeRepo.Create(code)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrCodeExists
		}
		return nil, err
	}
	logger.Ctx(ctx).Infow("code_created", "code_id", code.ID, "kind", code.Kind, "is_active", code.IsActive)
	return code, nil
}

// Update 更新兑换码；已兑换次数只由兑换流程维护，此处不会覆盖
func (s *CodeAdminService) Update(ctx context.Context, id uint, input UpdateCodeInput) (*models.Code, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := input.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	code, err := s.mutate(ctx, id, func(code *models.Code, now time.Time) error {
		if input.GlobalUsageLimit != nil && *input.GlobalUsageLimit < code.GlobalUsageCount {
			return ErrCodeLimitBelowUsed
		}
		code.Name = input.Name
		code.ValidFrom = toUTCPtr(input.ValidFrom)
		code.ValidUntil = toUTCPtr(input.ValidUntil)
		code.GlobalUsageLimit = input.GlobalUsageLimit
		code.PerUserUsageLimit = input.PerUserUsageLimit
		if input.IsActive != nil {
			code.IsActive = *input.IsActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Infow("code_updated", "code_id", code.ID, "status", code.Status)
	return code, nil
}

// SetActive 启用或停用兑换码
func (s *CodeAdminService) SetActive(ctx context.Context, id uint, active bool) (*models.Code, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, id, func(code *models.Code, _ time.Time) error {
		code.IsActive = active
		return nil
	})
}

func (s *CodeAdminService) mutate(ctx context.Context, id uint, apply func(code *models.Code, now time.Time) error) (*models.Code, error) {
	var code *models.Code
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)
		now := s.now()
		current, err := codeRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrCodeNotFound
		}
		if err := apply(current, now); err != nil {
			return err
		}
		current.SyncActiveOwner()
		current.Status = current.DeriveStatus(now)
		current.UpdatedAt = now
		if err := codeRepo.Update(current); err != nil {
			return err
		}
		code = current
		return nil
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrCodeExists
		}
		return nil, err
	}
	s.invalidate(ctx, code.Code)
	return code, nil
}

// Delete 软删除兑换码，历史兑换记录仍可引用
func (s *CodeAdminService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}
	var codeString string
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)
		now := s.now()
		current, err := codeRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrCodeNotFound
		}
		current.IsActive = false
		current.SyncActiveOwner()
		current.Status = current.DeriveStatus(now)
		current.UpdatedAt = now
		if err := codeRepo.Update(current); err != nil {
			return err
		}
		codeString = current.Code
		return codeRepo.Delete(current.ID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, codeString)
	logger.Ctx(ctx).Infow("code_deleted", "code_id", id)
	return nil
}

// Get 查询兑换码，状态按当前时间重新推导
func (s *CodeAdminService) Get(id uint) (*models.Code, error) {
	code, err := s.codeRepo.GetByID(id)
	if err != nil {
		return nil, ErrCodeFetchFailed
	}
	if code == nil {
		return nil, ErrCodeNotFound
	}
	code.Status = code.DeriveStatus(s.now())
	return code, nil
}

// List 兑换码列表
func (s *CodeAdminService) List(filter repository.CodeListFilter) ([]models.Code, int64, error) {
	codes, total, err := s.codeRepo.List(filter)
	if err != nil {
		return nil, 0, ErrCodeFetchFailed
	}
	now := s.now()
	for i := range codes {
		codes[i].Status = codes[i].DeriveStatus(now)
	}
	return codes, total, nil
}

func (s *CodeAdminService) invalidate(ctx context.Context, code string) {
	if err := s.codeCache.Invalidate(ctx, code); err != nil {
		logger.Ctx(ctx).Warnw("code_cache_invalidate_failed", "code", code, "error", err)
	}
}
