package model

import (
	"time"

	"github.com/google/uuid"
)

// Role values stored in users.role.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// User stores system users with role-based access.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(20);not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAuthorizeClose reports whether the user may authorize a register close.
func (u *User) CanAuthorizeClose() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}
