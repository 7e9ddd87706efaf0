package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// postgres SQLSTATE
const (
	pgCodeUniqueViolation      = "23505"
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeLockNotAvailable     = "55P03"
	pgCodeQueryCanceled        = "57014"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// DialectName 导出方言名称
func DialectName(db *gorm.DB) string {
	return dbDialectName(db)
}

func isPostgresDialect(dialect string) bool {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return true
	}
	return false
}

// LockTimeoutStatement 生成事务级锁等待超时语句，sqlite 无需设置时返回空串。
// SET 语句不支持绑定参数，毫秒值只接受整数。
func LockTimeoutStatement(dialect string, timeoutMS int) string {
	if timeoutMS <= 0 || !isPostgresDialect(dialect) {
		return ""
	}
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMS)
}

// ApplyLockTimeout 在事务内设置锁等待超时
func ApplyLockTimeout(tx *gorm.DB, timeoutMS int) error {
	stmt := LockTimeoutStatement(dbDialectName(tx), timeoutMS)
	if stmt == "" {
		return nil
	}
	return tx.Exec(stmt).Error
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsLockTimeout 是否为锁等待超时
func IsLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	switch pgErrorCode(err) {
	case pgCodeLockNotAvailable, pgCodeQueryCanceled:
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "lock timeout") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// IsTransientDBError 是否为可重试的数据库错误（锁超时、序列化冲突、死锁、连接中断）
func IsTransientDBError(err error) bool {
	if err == nil {
		return false
	}
	if IsLockTimeout(err) {
		return true
	}
	switch pgErrorCode(err) {
	case pgCodeSerializationFailure, pgCodeDeadlockDetected:
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "bad connection")
}

// IsUniqueViolation 是否为唯一约束冲突
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || pgErrorCode(err) == pgCodeUniqueViolation {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func likeOperatorByDialect(dialect string) string {
	if isPostgresDialect(dialect) {
		return "ILIKE"
	}
	return "LIKE"
}
