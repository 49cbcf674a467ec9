// Package mailer отправляет письма покупателям и подписчикам рассылки через SMTP.
package mailer

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"

	"github.com/mmeshcher/storefront/internal/model"
)

// Config — параметры SMTP-сервера.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sender отправляет подготовленные письма одним SMTP-сеансом.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer формирует и отправляет письма магазина.
type Mailer struct {
	from   string
	client sender
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) + " DA" },
	"lineTotal": func(it model.OrderItem) string {
		return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2) + " DA"
	},
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Name}},</p>
<p>Thank you for your order #{{.Order.ID}}. It is pending confirmation.</p>
<table>
<tr><th>Product</th><th>Size</th><th>Qty</th><th>Price</th></tr>
{{range .Order.Items}}<tr><td>{{.ProductName}}</td><td>{{.Size}}</td><td>{{.Quantity}}</td><td>{{lineTotal .}}</td></tr>
{{end}}</table>
<p>Subtotal: {{money .Order.Subtotal}}</p>
<p>Delivery ({{.Order.DeliveryMethod}}, {{.Order.Wilaya}}): {{money .Order.DeliveryFee}}</p>
<p>Total: {{money .Order.Total}}</p>
</body>
</html>
`))

// New создаёт Mailer для указанного SMTP-сервера.
func New(cfg Config) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{from: from, client: client}, nil
}

// SendOrderConfirmation отправляет покупателю подтверждение оформления заказа.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, to, name string, order *model.Order) error {
	msg, err := m.newMsg(fmt.Sprintf("Order #%d confirmation", order.ID), to)
	if err != nil {
		return err
	}

	data := struct {
		Name  string
		Order *model.Order
	}{Name: name, Order: order}
	if err := msg.SetBodyHTMLTemplate(confirmationTmpl, data); err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

// SendNewsletter отправляет письмо рассылки каждому получателю отдельным сообщением.
func (m *Mailer) SendNewsletter(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return nil
	}

	msgs := make([]*mail.Msg, 0, len(recipients))
	for _, to := range recipients {
		msg, err := m.newMsg(subject, to)
		if err != nil {
			return err
		}
		msg.SetBodyString(mail.TypeTextPlain, body)
		msgs = append(msgs, msg)
	}

	if err := m.client.DialAndSendWithContext(ctx, msgs...); err != nil {
		return fmt.Errorf("send newsletter: %w", err)
	}
	return nil
}

func (m *Mailer) newMsg(subject, to string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("set from %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	return msg, nil
}
