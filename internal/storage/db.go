package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"debate_arena/internal/models"
	"debate_arena/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB 包裝 gorm 連線
type DB struct {
	*gorm.DB
}

// Open 依設定建立資料庫連線
func Open(cfg config.DBConfig) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite 只允許單一寫入者，記憶體資料庫也必須共用同一條連線
	if cfg.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	return &DB{DB: db}, nil
}

// OpenSQLite 開啟 sqlite 資料庫，本機執行與測試使用
func OpenSQLite(dsn string) (*DB, error) {
	return Open(config.DBConfig{Driver: DriverSQLite, DSN: dsn, LogLevel: "silent"})
}

// Migrate 自動遷移資料庫結構
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent", "":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
