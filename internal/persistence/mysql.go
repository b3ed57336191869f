package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spec-kit/ticketmanager/internal/config"
)

// OpenMySQL connects gorm to the MySQL server named by cfg.MySQLDSN.
func OpenMySQL(ctx context.Context, cfg config.StorageConfig) (*gorm.DB, error) {
	if cfg.MySQLDSN == "" {
		return nil, errors.New("MYSQL_DSN is required for the mysql backend")
	}
	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MySQLMaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MySQLMaxConns)
		sqlDB.SetMaxIdleConns(cfg.MySQLMaxConns)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}
