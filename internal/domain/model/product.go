package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product はmerchantごとの商品マスタ。IDはmerchant内で一意。
type Product struct {
	MerchantID string          `gorm:"primaryKey;type:varchar(64)" json:"merchant_id"`
	ID         string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Barcode    string          `gorm:"type:varchar(64);index" json:"barcode,omitempty"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Category   string          `gorm:"type:varchar(100);not null;index" json:"category"`
	ImageURL   string          `gorm:"type:text" json:"image_url,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
