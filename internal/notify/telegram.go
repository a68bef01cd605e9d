package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"riskdesk/internal/config"
)

// TelegramChannel mirrors alerts to an ops channel (desk staff, not traders).
type TelegramChannel struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramChannel(cfg config.TelegramConfig) (*TelegramChannel, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramChannel{api: api, chatID: cfg.ChatID}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, ev Event) error {
	if c == nil || c.api == nil || c.chatID == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(severityEmoji(ev.Severity))
	sb.WriteString(" *")
	sb.WriteString(ev.Title)
	sb.WriteString("*\n")
	sb.WriteString(ev.Body)
	if ev.AccountID != 0 {
		fmt.Fprintf(&sb, "\naccount: %d", ev.AccountID)
	}
	msg := tgbotapi.NewMessage(c.chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.api.Send(msg)
	return err
}

func severityEmoji(severity string) string {
	switch severity {
	case "critical":
		return "🚨"
	case "warning":
		return "⚠️"
	default:
		return "ℹ️"
	}
}
