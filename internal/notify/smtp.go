package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	netmail "net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/config"
	"github.com/wneessen/go-mail"
)

// SMTPTransport sends mail through an SMTP relay, upgrading to TLS when the
// server offers STARTTLS. Bodies are quoted-printable so long lines and
// non-ASCII text survive any relay.
type SMTPTransport struct {
	host    string
	port    int
	addr    string
	from    string
	domain  string
	options []mail.Option
	now     func() time.Time
}

func NewSMTPTransport(cfg config.MailConfig) (*SMTPTransport, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail from address is required")
	}
	sender, err := netmail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("mail from address: %w", err)
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	options := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTLSConfig(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}),
	}
	if cfg.Timeout > 0 {
		options = append(options, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	return &SMTPTransport{
		host:    cfg.Host,
		port:    port,
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		from:    cfg.From,
		domain:  domainOf(sender.Address),
		options: options,
		now:     time.Now,
	}, nil
}

func (t *SMTPTransport) Send(ctx context.Context, email Email) (string, error) {
	if len(email.To) == 0 {
		return "", errors.New("email has no recipients")
	}

	messageID := fmt.Sprintf("%s@%s", uuid.NewString(), t.domain)
	msg, err := buildMessage(t.from, email, messageID, t.now())
	if err != nil {
		return "", err
	}

	// One client per message; dispatches run concurrently.
	client, err := mail.NewClient(t.host, t.options...)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send via %s: %w", t.addr, err)
	}
	return "<" + messageID + ">", nil
}

func buildMessage(from string, email Email, messageID string, now time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(stripNewlines(email.Subject))
	msg.SetDateWithValue(now)
	msg.SetMessageIDWithValue(messageID)
	msg.SetBodyString(mail.TypeTextHTML, email.HTML)
	return msg, nil
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(s)
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
