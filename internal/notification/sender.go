package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mackyshop/shop-backend/internal/account"
)

// ReceiptItem is one line of the itemized order confirmation.
type ReceiptItem struct {
	Name          string
	UnitPrice     float64
	Quantity      int
	PaymentMethod string
	ShippingDate  string
}

// Sender delivers customer notices. Sends are fire-and-forget from the
// caller's point of view: failures are logged, never surfaced into the
// order transition that triggered them.
type Sender interface {
	SendOrderConfirmation(ctx context.Context, to *account.Info, items []ReceiptItem, totalPrice float64) error
	SendCancellationNotice(ctx context.Context, to *account.Info, orderID, reason string) error
}

type smtpSender struct {
	host     string
	port     string
	from     string
	password string
}

func NewSMTPSender(host, port, from, password string) Sender {
	return &smtpSender{host: host, port: port, from: from, password: password}
}

func (s *smtpSender) SendOrderConfirmation(ctx context.Context, to *account.Info, items []ReceiptItem, totalPrice float64) error {
	if to == nil || to.Email == "" {
		return fmt.Errorf("notification: no recipient address for order confirmation")
	}
	body := buildReceiptBody(to, items, totalPrice)
	return s.send(to.Email, "Your Receipt from Macky's Online Shop", body)
}

func (s *smtpSender) SendCancellationNotice(ctx context.Context, to *account.Info, orderID, reason string) error {
	if to == nil || to.Email == "" {
		return fmt.Errorf("notification: no recipient address for cancellation notice")
	}
	body := buildCancellationBody(to, orderID, reason)
	return s.send(to.Email, "Order Cancellation Confirmation", body)
}

func (s *smtpSender) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", s.from, s.password, s.host)
	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("notification: failed to send mail to %s: %w", to, err)
	}
	log.Info().Str("to", to).Str("subject", subject).Msg("notification: mail sent")

	return nil
}

func buildReceiptBody(to *account.Info, items []ReceiptItem, totalPrice float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", to.RecipientName)
	b.WriteString("Thank you for shopping with us! Your order has been placed successfully.\n\nRECEIPT:\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "Item %d:\n", i+1)
		fmt.Fprintf(&b, "- Product: %s\n", item.Name)
		fmt.Fprintf(&b, "- Price: %.2f\n", item.UnitPrice)
		fmt.Fprintf(&b, "- Quantity: %d\n", item.Quantity)
		fmt.Fprintf(&b, "- Payment Method: %s\n", item.PaymentMethod)
		fmt.Fprintf(&b, "- Shipping Date: %s\n\n", item.ShippingDate)
	}
	fmt.Fprintf(&b, "Total Price: %.2f\n\n", totalPrice)
	fmt.Fprintf(&b, "Shipping Address:\n%s, %s\n\n", to.HouseStreet, to.Region)
	b.WriteString("If you have any questions regarding your order, feel free to contact our support team.\n\n- Macky's Online Shop Team")
	return b.String()
}

func buildCancellationBody(to *account.Info, orderID, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", to.Username)
	fmt.Fprintf(&b, "Your order (ID: %s) has been successfully canceled.\n\n", orderID)
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	b.WriteString("Best regards,\nMacky's Online Shop")
	return b.String()
}

type noopSender struct{}

// NewNoopSender returns a Sender that drops every notice. Used when SMTP
// is not configured and in tests.
func NewNoopSender() Sender {
	return noopSender{}
}

func (noopSender) SendOrderConfirmation(ctx context.Context, to *account.Info, items []ReceiptItem, totalPrice float64) error {
	log.Debug().Msg("notification: order confirmation skipped, no sender configured")
	return nil
}

func (noopSender) SendCancellationNotice(ctx context.Context, to *account.Info, orderID, reason string) error {
	log.Debug().Msg("notification: cancellation notice skipped, no sender configured")
	return nil
}
