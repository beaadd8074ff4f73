package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleLine struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	SaleID              string          `gorm:"type:varchar(64);not null;index" json:"-"`
	ProductID           string          `gorm:"type:varchar(64);not null" json:"product_id"`
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"product_name"`
	CategorySnapshot    string          `gorm:"type:varchar(100)" json:"category"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity            int             `gorm:"not null" json:"quantity"`
	Subtotal            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"-"`
}
