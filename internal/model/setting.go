package model

import "time"

// Setting is a key/value row for runtime-adjustable configuration.
type Setting struct {
	Key       string `gorm:"primaryKey;type:varchar(64)"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}
