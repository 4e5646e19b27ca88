package models

import (
	"time"

	"github.com/google/uuid"
)

// Address belongs to a user. Placed orders keep their own copy, so editing an
// address never changes an order retroactively.
type Address struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Label      string    `json:"label"` // "Casa", "Trabalho", "Outro"
	Street     string    `json:"street"`
	Number     string    `json:"number"`
	Complement string    `json:"complement,omitempty"`
	District   string    `json:"district"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	CreatedAt  time.Time `json:"created_at"`
}

type AddAddressRequest struct {
	Label      string `json:"label" validate:"required,max=50"`
	Street     string `json:"street" validate:"required"`
	Number     string `json:"number" validate:"required"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required,len=2,alpha"`
	PostalCode string `json:"postal_code" validate:"required"`
}
