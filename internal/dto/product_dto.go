package dto

import "github.com/shopspring/decimal"

// ProductFilter is bound from the query string of GET /products.
type ProductFilter struct {
	Name     string `form:"name"`
	Category string `form:"category"`
	Active   string `form:"active"` // "" | "false" | "all"
	LowStock bool   `form:"lowStock"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type CreateProductRequest struct {
	SKU        string          `json:"sku"        validate:"required,min=1,max=64"`
	Name       string          `json:"name"       validate:"required,min=2,max=150"`
	Category   string          `json:"category"   validate:"max=64"`
	CostPrice  decimal.Decimal `json:"costPrice"  validate:"min=0"`
	SalePrice  decimal.Decimal `json:"salePrice"  validate:"gt=0"`
	Stock      int             `json:"stock"      validate:"min=0"`
	MinStock   int             `json:"minStock"   validate:"min=0"`
	SupplierID *string         `json:"supplierId" validate:"omitempty,uuid"`
}

type UpdateProductRequest struct {
	Name       *string          `json:"name"       validate:"omitempty,min=2,max=150"`
	Category   *string          `json:"category"   validate:"omitempty,max=64"`
	CostPrice  *decimal.Decimal `json:"costPrice"`
	SalePrice  *decimal.Decimal `json:"salePrice"`
	MinStock   *int             `json:"minStock"   validate:"omitempty,min=0"`
	SupplierID *string          `json:"supplierId" validate:"omitempty,uuid"`
}

type ProductResponse struct {
	ID         string          `json:"id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	CostPrice  decimal.Decimal `json:"costPrice"`
	SalePrice  decimal.Decimal `json:"salePrice"`
	Stock      int             `json:"stock"`
	MinStock   int             `json:"minStock"`
	SupplierID *string         `json:"supplierId"`
	Active     bool            `json:"active"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
