package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

type PaymentMethod string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentMethodPix      PaymentMethod = "pix"
	PaymentMethodWhatsApp PaymentMethod = "whatsapp"
)

type OrderLine struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Order is created exactly once per successful checkout and is immutable from
// the client's perspective afterwards. ShippingAddress is a snapshot, not a
// reference to the user's address book.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Status          OrderStatus     `json:"status"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Notes           string          `json:"notes,omitempty"`
	ShippingAddress Address         `json:"shipping_address"`
	Lines           []OrderLine     `json:"lines"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CreateOrderRequest struct {
	UserID          uuid.UUID     `json:"user_id" validate:"required"`
	Lines           []OrderLine   `json:"lines" validate:"required,min=1,dive"`
	ShippingAddress Address       `json:"shipping_address" validate:"required"`
	PaymentMethod   PaymentMethod `json:"payment_method" validate:"required,oneof=pix whatsapp"`
	Notes           string        `json:"notes,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending confirmed shipping delivered cancelled"`
}
