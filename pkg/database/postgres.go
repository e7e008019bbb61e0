package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskhub-backend/pkg/config"
)

// NewPostgresConnection opens the application database. TranslateError turns
// driver-specific failures into gorm sentinels (duplicate keys in particular).
func NewPostgresConnection(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.IsProduction() {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
}
