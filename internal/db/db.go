package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"winterstudy-backend/internal/common"
)

// Open 连接数据库并迁移表结构
func Open(cfg common.DatabaseConfig) (*gorm.DB, error) {
	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	gLogger := logger.New(
		zap.NewStdLog(common.Logger),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	conn, err := gorm.Open(dial, &gorm.Config{Logger: gLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite 单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Migrate 自动迁移表结构
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&StorageEntry{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}

// InitDB 初始化数据库连接
func InitDB(cfg common.DatabaseConfig) (*gorm.DB, error) {
	conn, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	common.Sugar.Infow("database connected", "driver", cfg.Driver)
	return conn, nil
}

// NewStateStore 按驱动创建状态存储，memory 驱动不连接数据库
func NewStateStore(cfg common.DatabaseConfig) (StateStore, error) {
	if cfg.Driver == "memory" {
		return NewMemoryStore(), nil
	}
	conn, err := InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewKVStore(conn), nil
}
