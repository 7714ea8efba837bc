package model

import (
	"time"

	"github.com/google/uuid"
)

// Consumer is a registered customer that sales may reference.
type Consumer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	CPF       *string   `gorm:"column:cpf;uniqueIndex"`
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
