// Package whatsapp builds the chat deep link used to coordinate manual
// payment of an order. The link format is owned by WhatsApp, not by us.
package whatsapp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Client struct {
	phone string // studio contact, E.164 digits without the plus sign
}

func NewClient(phone string) *Client {
	return &Client{phone: phone}
}

// PaymentLink returns a wa.me URL with a pre-filled message carrying the order
// id and the formatted total.
func (c *Client) PaymentLink(orderID uuid.UUID, total decimal.Decimal) string {

	message := fmt.Sprintf("Olá! Acabei de fazer o pedido %s no valor de %s e gostaria de combinar o pagamento.",
		orderID, FormatBRL(total))

	return fmt.Sprintf("https://wa.me/%s?text=%s", c.phone, url.QueryEscape(message))
}

// FormatBRL renders a decimal as Brazilian currency, e.g. R$ 1.234,56.
func FormatBRL(value decimal.Decimal) string {

	negative := value.IsNegative()

	fixed := value.Abs().StringFixed(2)

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder

	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}

	return fmt.Sprintf("%sR$ %s,%s", sign, grouped.String(), fracPart)
}
