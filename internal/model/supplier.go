package model

import (
	"time"

	"github.com/google/uuid"
)

// Supplier represents a vendor with commercial data.
type Supplier struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	CNPJ      string    `gorm:"column:cnpj;uniqueIndex;not null"`
	Phone     *string
	Email     *string
	Address   *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
