package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"riskdesk/internal/config"
)

// DiscordChannel posts to a webhook URL; Discord renders the embed.
type DiscordChannel struct {
	Config config.DiscordConfig
	HTTP   *http.Client
}

func (c *DiscordChannel) Name() string { return "discord" }

func (c *DiscordChannel) Send(ctx context.Context, ev Event) error {
	if c == nil || strings.TrimSpace(c.Config.WebhookURL) == "" {
		return nil
	}
	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       ev.Title,
				"description": ev.Body,
				"color":       severityColor(ev.Severity),
				"fields": []map[string]any{
					{"name": "account", "value": fmt.Sprintf("%d", ev.AccountID), "inline": true},
					{"name": "type", "value": ev.Type, "inline": true},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook http %d", resp.StatusCode)
	}
	return nil
}

func severityColor(severity string) int {
	switch severity {
	case "critical":
		return 0xe74c3c
	case "warning":
		return 0xf1c40f
	default:
		return 0x3498db
	}
}
