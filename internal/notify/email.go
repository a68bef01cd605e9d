package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"riskdesk/internal/config"
)

// EmailClient talks to the transactional-mail provider's HTTP API. Template
// rendering lives with the provider; this side only supplies fields.
type EmailClient struct {
	Config config.EmailConfig
	HTTP   *http.Client
}

func (c *EmailClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *EmailClient) Enabled() bool {
	return c != nil && c.Config.Enabled && strings.TrimSpace(c.Config.BaseURL) != ""
}

func (c *EmailClient) SendMail(ctx context.Context, to, subject, text string) error {
	if c == nil {
		return nil
	}
	base := strings.TrimRight(strings.TrimSpace(c.Config.BaseURL), "/")
	if base == "" {
		return errors.New("email base url is empty")
	}
	body, err := json.Marshal(map[string]any{
		"from":    c.Config.From,
		"to":      []string{to},
		"subject": subject,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.Config.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email send http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
