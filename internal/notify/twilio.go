package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/BTreeMap/Healora/internal/models"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioOpts holds configuration options for the Twilio SMS dispatcher.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioOption defines a configuration option for the Twilio SMS dispatcher.
type TwilioOption func(*TwilioOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number in E.164 form.
func WithFromNumber(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromNumber = from }
}

// TwilioDispatcher sends notifications as SMS through the Twilio REST API.
type TwilioDispatcher struct {
	api  messageCreator
	from string
}

// NewTwilioDispatcher builds a dispatcher, falling back to TWILIO_* environment variables.
func NewTwilioDispatcher(opts ...TwilioOption) (*TwilioDispatcher, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioDispatcher{api: client.Api, from: cfg.FromNumber}, nil
}

// Send delivers the subject and body as one SMS.
func (d *TwilioDispatcher) Send(ctx context.Context, n models.Notification) error {
	if n.Recipient == "" {
		return models.ErrEmptyRecipient
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.Recipient)
	params.SetFrom(d.from)
	params.SetBody(plainText(n))

	if _, err := d.api.CreateMessage(params); err != nil {
		slog.Error("Twilio SendMessage failed", "to", n.Recipient, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", n.Recipient, err)
	}
	slog.Debug("Twilio message sent", "to", n.Recipient)
	return nil
}

func plainText(n models.Notification) string {
	if n.Subject == "" {
		return n.Body
	}
	return n.Subject + "\n\n" + n.Body
}
