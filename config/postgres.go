package config

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var PostgresDB *gorm.DB

// InitPostgres opens the session store pool from store.postgres_uri.
func InitPostgres(s StoreSettings) error {
	if s.PostgresURI == "" {
		return errors.New("store.postgres_uri is not set (POSTGRES_URI)")
	}
	db, err := gorm.Open(postgres.Open(s.PostgresURI), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("postgres open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(s.MaxConns)
	sqlDB.SetMaxIdleConns(s.MaxConns / 2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	PostgresDB = db
	return nil
}
