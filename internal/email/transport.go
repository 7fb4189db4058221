package email

import (
	"context"
	"fmt"
	"io"
	"net/smtp"
	"sync"

	"github.com/radiusfinancial/radius-api/internal/logging"
)

// SMTPTransport sends mail through an SMTP relay.
type SMTPTransport struct {
	host     string
	port     string
	user     string
	password string
}

func NewSMTPTransport(host, port, user, password string) *SMTPTransport {
	return &SMTPTransport{host: host, port: port, user: user, password: password}
}

func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var auth smtp.Auth
	if t.user != "" {
		auth = smtp.PlainAuth("", t.user, t.password, t.host)
	}

	addr := fmt.Sprintf("%s:%s", t.host, t.port)
	return smtp.SendMail(addr, auth, msg.From, []string{msg.To}, raw)
}

// ConsoleTransport writes messages to w instead of sending them. Used in
// development.
type ConsoleTransport struct {
	mu     sync.Mutex
	w      io.Writer
	logger *logging.Logger
}

func NewConsoleTransport(w io.Writer, logger *logging.Logger) *ConsoleTransport {
	return &ConsoleTransport{w: w, logger: logger}
}

func (t *ConsoleTransport) Send(_ context.Context, msg *Message) error {
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.Debug("writing email to console", "to", msg.To, "subject", msg.Subject)
	if _, err := fmt.Fprintf(t.w, "%s\n%s\n", raw, "-------------------------------------------------------------------------------"); err != nil {
		return fmt.Errorf("write email: %w", err)
	}
	return nil
}
