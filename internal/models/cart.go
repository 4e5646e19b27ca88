package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine pairs a product snapshot with a quantity. The unit price is the
// price at add time; Stock is the stock seen at the last add and bounds the
// quantity when the catalog cannot be consulted.
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered sequence of lines, unique by product id. Total and Count
// are derived and recomputed after every mutation; only the cart service
// mutates a Cart.
type Cart struct {
	UserID    uuid.UUID       `json:"user_id"`
	Lines     []CartLine      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	Count     int             `json:"count"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewCart(userID uuid.UUID) *Cart {
	return &Cart{
		UserID: userID,
		Lines:  []CartLine{},
		Total:  decimal.Zero,
	}
}

// LineIndex returns the position of the line for productID, or -1.
func (c *Cart) LineIndex(productID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}

	return -1
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Recalculate refreshes the derived Total and Count from the lines.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	count := 0

	for i := range c.Lines {
		total = total.Add(c.Lines[i].Subtotal())
		count += c.Lines[i].Quantity
	}

	c.Total = total
	c.Count = count
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// Quantity may be zero or negative, which removes the line.
type UpdateCartQuantityRequest struct {
	Quantity int `json:"quantity"`
}
