package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/mmeshcher/storefront/internal/model"
)

type stubSender struct {
	sent []*mail.Msg
	err  error
}

func (s *stubSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, messages...)
	return nil
}

func newTestMailer(s *stubSender) *Mailer {
	return &Mailer{from: "shop@example.dz", client: s}
}

func render(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSendOrderConfirmation(t *testing.T) {
	s := &stubSender{}
	m := newTestMailer(s)

	order := &model.Order{
		ID: 17,
		Items: []model.OrderItem{
			{ProductName: "Kaftan", Size: "M", Quantity: 2, UnitPrice: decimal.NewFromInt(1500)},
		},
		DeliveryMethod: model.DeliveryDesk,
		Wilaya:         "Oran",
		Subtotal:       decimal.NewFromInt(3000),
		DeliveryFee:    decimal.NewFromInt(400),
		Total:          decimal.NewFromInt(3400),
	}

	require.NoError(t, m.SendOrderConfirmation(context.Background(), "amina@example.dz", "Amina", order))
	require.Len(t, s.sent, 1)

	msg := s.sent[0]
	assert.Equal(t, []string{"<amina@example.dz>"}, msg.GetToString())
	assert.Equal(t, []string{"Order #17 confirmation"}, msg.GetGenHeader(mail.HeaderSubject))

	out := render(t, msg)
	assert.Contains(t, out, "Kaftan")
	assert.Contains(t, out, "3400.00 DA")
}

func TestSendOrderConfirmation_BadRecipient(t *testing.T) {
	s := &stubSender{}
	err := newTestMailer(s).SendOrderConfirmation(context.Background(), "not an email", "X", &model.Order{ID: 1})
	assert.Error(t, err)
	assert.Empty(t, s.sent)
}

func TestSendNewsletter(t *testing.T) {
	s := &stubSender{}
	m := newTestMailer(s)

	err := m.SendNewsletter(context.Background(), []string{"a@example.dz", "b@example.dz"}, "Summer sale", "Up to 30% off")
	require.NoError(t, err)
	require.Len(t, s.sent, 2)
	assert.Equal(t, []string{"<b@example.dz>"}, s.sent[1].GetToString())
	assert.Contains(t, render(t, s.sent[0]), "Up to 30")

	assert.NoError(t, m.SendNewsletter(context.Background(), nil, "x", "y"))
	assert.Len(t, s.sent, 2)
}

func TestSendNewsletter_TransportError(t *testing.T) {
	s := &stubSender{err: errors.New("connection refused")}
	err := newTestMailer(s).SendNewsletter(context.Background(), []string{"a@example.dz"}, "s", "b")
	assert.ErrorContains(t, err, "connection refused")
}
