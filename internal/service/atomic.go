package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dujiao-next/redemption/internal/repository"

	"gorm.io/gorm"
)

// TxRunner 执行带锁等待上限的数据库事务，并将可重试错误归类为 ErrTransient
type TxRunner struct {
	db            *gorm.DB
	lockTimeoutMS int
}

// NewTxRunner 创建事务执行器
func NewTxRunner(db *gorm.DB, lockTimeoutMS int) *TxRunner {
	return &TxRunner{db: db, lockTimeoutMS: lockTimeoutMS}
}

// DB 返回底层连接
func (r *TxRunner) DB() *gorm.DB {
	return r.db
}

// Run 在单个事务内执行 fn；fn 返回错误时整体回滚
func (r *TxRunner) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("%w: database not initialized", ErrTransient)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.ApplyLockTimeout(tx, r.lockTimeoutMS); err != nil {
			return err
		}
		return fn(tx)
	})
	return classifyTxError(ctx, err)
}

// TransientError 可重试错误，携带底层原因
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTransient.Error(), e.Cause)
}

// Is 使 errors.Is(err, ErrTransient) 成立
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// IsTransient 判断错误是否可重试
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func classifyTxError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return err
	}
	if repository.IsTransientDBError(err) || errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Cause: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded) {
		return &TransientError{Cause: err}
	}
	return err
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
