package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is owned by the catalog; the cart only ever holds snapshots of it.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"` // BRL
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Images      pq.StringArray  `json:"images"`
	Status      ProductStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateProductRequest struct {
	Title       string          `json:"title" validate:"required,min=3,max=200"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	Images      []string        `json:"images,omitempty" validate:"omitempty,dive,url"`
}

type UpdateProductRequest struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=3,max=200"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Category    *string          `json:"category,omitempty"`
	Images      *[]string        `json:"images,omitempty" validate:"omitempty,dive,url"`
	Status      *ProductStatus   `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// ProductFilter narrows a catalog listing by category and a case-insensitive
// free-text match over title and description.
type ProductFilter struct {
	Category string
	Query    string
}

func (f ProductFilter) Matches(p *Product) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}

	if f.Query == "" {
		return true
	}

	q := strings.ToLower(f.Query)

	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}
