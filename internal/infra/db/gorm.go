package db

import (
	"pos/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(dsn string, quiet bool) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if quiet {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	return gorm.Open(postgres.Open(dsn), cfg)
}

// Migrate はPOSで使うテーブルを作る
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Merchant{},
		&model.EmployeeMerchantAccess{},
		&model.Product{},
		&model.Sale{},
		&model.SaleLine{},
		&model.Snapshot{},
	)
}
