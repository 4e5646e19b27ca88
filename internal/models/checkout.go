package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shipping step input. Either an existing address is selected by id or a new
// one is created and becomes selected. A blank recipient name keeps the
// profile-name default chosen when the flow began.
type CheckoutShippingRequest struct {
	AddressID     *uuid.UUID         `json:"address_id,omitempty"`
	NewAddress    *AddAddressRequest `json:"new_address,omitempty" validate:"omitempty"`
	RecipientName string             `json:"recipient_name,omitempty" validate:"omitempty,max=200"`
}

type CheckoutPaymentRequest struct {
	Method PaymentMethod `json:"method" validate:"required,oneof=pix whatsapp"`
}

type CheckoutStatus struct {
	State         string          `json:"state"`
	Address       *Address        `json:"address,omitempty"`
	RecipientName string          `json:"recipient_name,omitempty"`
	Method        PaymentMethod   `json:"method,omitempty"`
	CartTotal     decimal.Decimal `json:"cart_total"`
	CartCount     int             `json:"cart_count"`
	OrderID       uuid.UUID       `json:"order_id,omitzero"`
}

// CheckoutConfirmation is the terminal-state payload. For whatsapp orders it
// carries the deep link used to coordinate payment; for pix it carries the
// studio's pix key.
type CheckoutConfirmation struct {
	OrderID      uuid.UUID       `json:"order_id"`
	Total        decimal.Decimal `json:"total"`
	Method       PaymentMethod   `json:"method"`
	WhatsAppLink string          `json:"whatsapp_link,omitempty"`
	PixKey       string          `json:"pix_key,omitempty"`
	CatalogPath  string          `json:"catalog_path"`
}
