package notify

import (
	"context"

	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/whatsapp"
)

// WhatsAppDispatcher sends notifications through a connected WhatsApp client.
type WhatsAppDispatcher struct {
	sender whatsapp.Sender
}

// NewWhatsAppDispatcher wraps sender.
func NewWhatsAppDispatcher(sender whatsapp.Sender) *WhatsAppDispatcher {
	return &WhatsAppDispatcher{sender: sender}
}

func (d *WhatsAppDispatcher) Send(ctx context.Context, n models.Notification) error {
	if n.Recipient == "" {
		return models.ErrEmptyRecipient
	}
	return d.sender.SendMessage(ctx, n.Recipient, plainText(n))
}
