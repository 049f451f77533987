package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"storefront/internal/model"

	"github.com/resend/resend-go/v3"
	"github.com/rs/zerolog"
)

// emailAPI is the part of the resend client used here.
type emailAPI interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

var (
	placedTemplate = template.Must(template.New("placed").Parse(`<!DOCTYPE html>
<html><body>
<p>Hi {{.FullName}},</p>
<p>Thanks for your order <strong>{{.ID}}</strong>.</p>
<table>
{{range .Lines}}<tr><td>{{.ProductName}} ({{.SKU}})</td><td>{{.Quantity}} x {{.UnitPrice.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{.Total.StringFixed 2}}</strong></p>
<p>We will ship to {{.Address}}, {{.City}}, {{.State}} {{.PostalCode}}.</p>
</body></html>`))

	statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html><body>
<p>Hi {{.Order.FullName}},</p>
<p>Your order <strong>{{.Order.ID}}</strong> is now <strong>{{.Order.Status}}</strong>.</p>
</body></html>`))
)

// Email sends transactional order mail through Resend.
type Email struct {
	api    emailAPI
	from   string
	logger zerolog.Logger
}

// NewEmail creates an email notifier for the given Resend API key.
func NewEmail(apiKey, from string, logger zerolog.Logger) *Email {
	return newEmail(resend.NewClient(apiKey).Emails, from, logger)
}

func newEmail(api emailAPI, from string, logger zerolog.Logger) *Email {
	return &Email{
		api:    api,
		from:   from,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

func (e *Email) send(to, subject string, tmpl *template.Template, data any) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}

	sent, err := e.api.Send(&resend.SendEmailRequest{
		From:    e.from,
		To:      []string{to},
		Subject: subject,
		Html:    body.String(),
	})
	if err != nil {
		e.logger.Error().Err(err).Str("to", to).Str("template", tmpl.Name()).Msg("failed to send email")
		return fmt.Errorf("failed to send %s email: %w", tmpl.Name(), err)
	}

	e.logger.Debug().Str("email_id", sent.Id).Str("template", tmpl.Name()).Msg("email sent")
	return nil
}

// OrderPlaced mails the order confirmation.
func (e *Email) OrderPlaced(_ context.Context, order *model.Order) error {
	return e.send(order.Email, fmt.Sprintf("Order %s confirmed", order.ID), placedTemplate, order)
}

// OrderStatusChanged mails the new status.
func (e *Email) OrderStatusChanged(_ context.Context, change model.StatusChange) error {
	if change.Previous == change.Order.Status {
		return nil
	}
	subject := fmt.Sprintf("Order %s is %s", change.Order.ID, change.Order.Status)
	return e.send(change.Order.Email, subject, statusTemplate, change)
}
