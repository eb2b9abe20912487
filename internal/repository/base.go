package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound 查無資料
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 違反唯一索引
	ErrDuplicate = errors.New("duplicate record")
)

// translate 將驅動錯誤轉成 repository 的錯誤
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite 未經 TranslateError 轉換時的錯誤訊息
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// 只有 postgres 支援列鎖，sqlite 本身就會序列化寫入
func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

func forUpdate(db *gorm.DB) *gorm.DB {
	if !supportsRowLocks(db) {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func forShare(db *gorm.DB) *gorm.DB {
	if !supportsRowLocks(db) {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "SHARE"})
}

// applied 回傳條件式更新是否真的改到資料
func applied(result *gorm.DB) (bool, error) {
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}
