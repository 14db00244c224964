package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"wingo/events"
	"wingo/models"
)

// Discord embed colors
const (
	ColorWarning = 0xFEE75C
	ColorSuccess = 0x57F287
	ColorDanger  = 0xED4245
)

// embedSender is the part of a discord session the alerter needs
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// WithdrawalAlerter posts withdrawal activity to an operator channel
type WithdrawalAlerter struct {
	sender    embedSender
	channelID string
}

// NewDiscordSession opens a bot session used only for sending alerts
func NewDiscordSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord connection: %w", err)
	}
	log.Info("Discord alert session opened")
	return dg, nil
}

// NewWithdrawalAlerter creates an alerter posting to channelID
func NewWithdrawalAlerter(sender embedSender, channelID string) *WithdrawalAlerter {
	return &WithdrawalAlerter{sender: sender, channelID: channelID}
}

// SubscribeToBus posts an embed for every withdrawal request and decision
func (a *WithdrawalAlerter) SubscribeToBus(bus *events.Bus) {
	bus.SubscribeAll(func(_ context.Context, event events.Event) {
		embed := a.buildEmbed(event)
		if embed == nil {
			return
		}
		if _, err := a.sender.ChannelMessageSendEmbed(a.channelID, embed); err != nil {
			log.WithError(err).WithField("eventType", event.Type()).Error("Failed to send withdrawal alert")
		}
	}, events.EventTypeWithdrawalRequested, events.EventTypeWithdrawalProcessed)
}

func (a *WithdrawalAlerter) buildEmbed(event events.Event) *discordgo.MessageEmbed {
	switch e := event.(type) {
	case events.WithdrawalRequestedEvent:
		return &discordgo.MessageEmbed{
			Title:       "Withdrawal requested",
			Description: fmt.Sprintf("Request **#%d** is waiting for review", e.RequestID),
			Color:       ColorWarning,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Account", Value: fmt.Sprintf("%d", e.AccountID), Inline: true},
				{Name: "Amount", Value: e.Amount.StringFixed(2), Inline: true},
				{Name: "Payout address", Value: e.PayoutAddress},
			},
		}
	case events.WithdrawalProcessedEvent:
		color := ColorSuccess
		if e.Status != models.WithdrawalStatusApproved {
			color = ColorDanger
		}
		return &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Withdrawal %s", e.Status),
			Description: fmt.Sprintf("Request **#%d** for account %d", e.RequestID, e.AccountID),
			Color:       color,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Amount", Value: e.Amount.StringFixed(2), Inline: true},
			},
		}
	default:
		return nil
	}
}
