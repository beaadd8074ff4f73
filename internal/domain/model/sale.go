package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale は会計済みカートの記録。カートの内容をその時点でコピーして残す。
type Sale struct {
	ID         string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	MerchantID string          `gorm:"type:varchar(64);not null;index" json:"merchant_id"`
	EmployeeID string          `gorm:"type:varchar(64);not null;index" json:"employee_id"`
	CartID     string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"cart_id"`
	CartName   string          `gorm:"type:varchar(255);not null" json:"cart_name"`
	CartType   string          `gorm:"type:varchar(20);not null" json:"cart_type"`
	Note       string          `gorm:"type:text" json:"note"`
	Total      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	ItemCount  int             `gorm:"not null" json:"item_count"`
	Lines      []SaleLine      `gorm:"foreignKey:SaleID" json:"lines"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
