package model

import "time"

// Snapshot はキー単位で丸ごと置き換える保存領域
type Snapshot struct {
	Key       string    `gorm:"primaryKey;type:varchar(255)"`
	Data      []byte    `gorm:"type:bytea;not null"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}
