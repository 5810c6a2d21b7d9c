package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/Healora/internal/models"
)

// DefaultSMTPPort is the submission port used when none is configured.
const DefaultSMTPPort = 587

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPDispatcher sends plain-text e-mail through an SMTP relay.
type SMTPDispatcher struct {
	host     string
	port     int
	username string
	password string
	from     string
	sendMail sendMailFunc
}

// SMTPOption configures an SMTPDispatcher.
type SMTPOption func(*SMTPDispatcher)

// WithSMTPPort overrides the relay port.
func WithSMTPPort(port int) SMTPOption {
	return func(d *SMTPDispatcher) {
		if port > 0 {
			d.port = port
		}
	}
}

// WithSMTPAuth enables PLAIN authentication.
func WithSMTPAuth(username, password string) SMTPOption {
	return func(d *SMTPDispatcher) {
		d.username = username
		d.password = password
	}
}

// NewSMTPDispatcher creates a dispatcher that sends from the given address.
func NewSMTPDispatcher(host, from string, opts ...SMTPOption) (*SMTPDispatcher, error) {
	if host == "" {
		return nil, fmt.Errorf("smtp host must be provided")
	}
	if from == "" {
		return nil, fmt.Errorf("smtp sender address must be provided")
	}
	d := &SMTPDispatcher{host: host, port: DefaultSMTPPort, from: from, sendMail: smtp.SendMail}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// From returns the sender address.
func (d *SMTPDispatcher) From() string {
	return d.from
}

// Send delivers n as a single e-mail. net/smtp has no context support, so ctx is
// only checked before the relay is contacted.
func (d *SMTPDispatcher) Send(ctx context.Context, n models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.Recipient == "" {
		return models.ErrEmptyRecipient
	}
	var auth smtp.Auth
	if d.username != "" {
		auth = smtp.PlainAuth("", d.username, d.password, d.host)
	}
	addr := net.JoinHostPort(d.host, strconv.Itoa(d.port))
	if err := d.sendMail(addr, auth, d.from, []string{n.Recipient}, buildMessage(d.from, n, time.Now())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.Recipient, err)
	}
	return nil
}

func buildMessage(from string, n models.Notification, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", n.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", n.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(n.Body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}
