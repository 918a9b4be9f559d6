package mail

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const senderName = "PureView"

type deliverer interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// Sender delivers transactional mail through SendGrid. Without an API key
// it is disabled and Send does nothing.
type Sender struct {
	client deliverer
	from   string
	logger *zap.Logger
}

func NewSender(apiKey, from string, logger *zap.Logger) *Sender {
	s := &Sender{from: from, logger: logger}
	if apiKey != "" {
		s.client = sendgrid.NewSendClient(apiKey)
	}
	return s
}

func (s *Sender) Enabled() bool {
	return s.client != nil
}

func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if !s.Enabled() {
		return nil
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(senderName, s.from),
		subject,
		sgmail.NewEmail("", to),
		body,
		fmt.Sprintf("<p>%s</p>", html.EscapeString(body)),
	)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	s.logger.Info("mail sent",
		zap.Int("status", response.StatusCode),
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

// ShipmentMessage renders the mail sent when an order ships.
func ShipmentMessage(name, orderID string) (subject, body string) {
	subject = "Your PureView order has shipped"
	body = fmt.Sprintf("Hi %s, your order %s shipped with success.", name, orderID)
	return subject, body
}
