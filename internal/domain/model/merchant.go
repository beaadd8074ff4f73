package model

import "time"

type MerchantType string

const (
	MerchantTypeFood         MerchantType = "food"
	MerchantTypeConstruction MerchantType = "construction"
)

type Merchant struct {
	ID          string       `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string       `gorm:"type:varchar(255);not null" json:"name"`
	Type        MerchantType `gorm:"type:varchar(50);not null" json:"type"`
	LogoURL     string       `gorm:"type:text" json:"logo,omitempty"`
	Color       string       `gorm:"type:varchar(16)" json:"color,omitempty"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt   time.Time    `gorm:"not null;autoUpdateTime" json:"-"`
}
