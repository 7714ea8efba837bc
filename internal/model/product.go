package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item. Stock is decremented by sales.
type Product struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU        string          `gorm:"column:sku;uniqueIndex;not null"`
	Name       string          `gorm:"index;not null"`
	Category   string          `gorm:"not null;default:''"`
	CostPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SalePrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock      int             `gorm:"not null;default:0"`
	MinStock   int             `gorm:"not null;default:0"`
	SupplierID *uuid.UUID      `gorm:"type:uuid;index"`
	Active     bool            `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Supplier *Supplier `gorm:"foreignKey:SupplierID"`
}
