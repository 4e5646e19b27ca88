package sendgrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelieforma/storefront/internal/models"
	"github.com/atelieforma/storefront/pkg/whatsapp"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey string, fromEmail string, fromName string) *EmailService {
	return &EmailService{client: sendgrid.NewSendClient(apiKey), fromEmail: fromEmail, fromName: fromName}
}

// SendOrderConfirmation emails a plain-text order summary to the buyer.
func (e *EmailService) SendOrderConfirmation(ctx context.Context, toEmail, toName string, order *models.Order) error {

	from := mail.NewEmail(e.fromName, e.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	subject := fmt.Sprintf("Pedido %s recebido", order.ID)

	var body strings.Builder

	fmt.Fprintf(&body, "Olá %s,\n\nRecebemos o seu pedido %s.\n\n", toName, order.ID)

	for _, line := range order.Lines {
		fmt.Fprintf(&body, "  %dx %s - %s\n", line.Quantity, line.ProductID, whatsapp.FormatBRL(line.UnitPrice))
	}

	fmt.Fprintf(&body, "\nTotal: %s\nPagamento: %s\n", whatsapp.FormatBRL(order.Total), order.PaymentMethod)

	message := mail.NewSingleEmailPlainText(from, subject, to, body.String())

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	return nil
}
