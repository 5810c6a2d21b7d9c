package notify

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/Healora/internal/models"
)

// LogDispatcher writes notifications to the log instead of delivering them.
type LogDispatcher struct{}

func (LogDispatcher) Send(ctx context.Context, n models.Notification) error {
	slog.Info("LogDispatcher.Send: notification (dry run)", "recipient", n.Recipient, "subject", n.Subject, "body_length", len(n.Body))
	return nil
}
