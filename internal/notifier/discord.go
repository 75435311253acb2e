package notifier

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/wedding-api/internal/models"
	"github.com/rs/zerolog"
)

// DiscordNotifier posts new replies and photos into the couple's channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	log       zerolog.Logger
}

func NewDiscordNotifier(botToken, channelID string, log zerolog.Logger) (*DiscordNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
		log:       log.With().Str("component", "discord").Logger(),
	}, nil
}

func (n *DiscordNotifier) NotifyRSVP(ctx context.Context, rsvp models.RSVP) error {
	title := "💌 **New RSVP**"
	if !rsvp.Attending() {
		title = "😢 **RSVP: can't make it**"
	}
	return n.send(ctx, title+"\n"+joinLines(rsvpSummary(rsvp)))
}

func (n *DiscordNotifier) NotifyPhoto(ctx context.Context, photo models.Photo) error {
	return n.send(ctx, "📸 **New photo waiting for approval**\n"+joinLines(photoSummary(photo)))
}

func (n *DiscordNotifier) send(ctx context.Context, message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	if _, err := n.session.ChannelMessageSend(n.channelID, message, discordgo.WithContext(ctx)); err != nil {
		n.log.Error().Err(err).Str("channel_id", n.channelID).Msg("failed to send discord message")
		return err
	}
	return nil
}
