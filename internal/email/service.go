package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers one HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends mail through an unauthenticated SMTP relay.
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender creates a sender for host:port
func NewSMTPSender(host, port, from string) *SMTPSender {
	return &SMTPSender{addr: host + ":" + port, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, sanitizeHeader(subject), body)
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Service renders and sends customer notifications
type Service struct {
	sender Sender
}

// NewService creates a new email service
func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

// SendOrderConfirmation tells the customer their payment went through
func (s *Service) SendOrderConfirmation(ctx context.Context, to string, o OrderSummary) error {
	body, err := render(confirmationTemplate, o)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, to, fmt.Sprintf("Order confirmed (%s)", o.ShortRef()), body)
}

// SendShipped tells the customer the order left the print provider
func (s *Service) SendShipped(ctx context.Context, to string, o OrderSummary) error {
	body, err := render(shippedTemplate, o)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, to, fmt.Sprintf("Your order has shipped (%s)", o.ShortRef()), body)
}

// SendCancelled tells the customer the order was cancelled
func (s *Service) SendCancelled(ctx context.Context, to string, o OrderSummary) error {
	body, err := render(cancelledTemplate, o)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, to, fmt.Sprintf("Order cancelled (%s)", o.ShortRef()), body)
}
