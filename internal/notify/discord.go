package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/BTreeMap/Healora/internal/models"
)

// discordMessageLimit is the maximum message length accepted by Discord.
const discordMessageLimit = 2000

type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordDispatcher posts notifications to a Discord channel through a bot account.
type DiscordDispatcher struct {
	session channelSender
}

// NewDiscordDispatcher creates a REST-only bot session; no gateway connection is opened.
func NewDiscordDispatcher(token string) (*DiscordDispatcher, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token must be provided")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return &DiscordDispatcher{session: s}, nil
}

// Send posts n to the channel id held in n.Recipient.
func (d *DiscordDispatcher) Send(ctx context.Context, n models.Notification) error {
	if n.Recipient == "" {
		return models.ErrEmptyRecipient
	}
	content := markdownText(n)
	if r := []rune(content); len(r) > discordMessageLimit {
		content = string(r[:discordMessageLimit-1]) + "…"
	}
	if _, err := d.session.ChannelMessageSend(n.Recipient, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send to channel %s: %w", n.Recipient, err)
	}
	return nil
}

// markdownText renders the subject as a bold heading above the body.
func markdownText(n models.Notification) string {
	if n.Subject == "" {
		return n.Body
	}
	return "**" + n.Subject + "**\n" + n.Body
}
