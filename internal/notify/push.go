package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"riskdesk/internal/config"
	"riskdesk/internal/models"
)

type SubscriptionStore interface {
	ListPushSubscriptionsByUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// PushChannel posts the event payload to every stored browser-push endpoint
// for the target user. A 404/410 response marks the subscription dead and the
// row is deleted so future cycles stop retrying it.
type PushChannel struct {
	Store  SubscriptionStore
	Config config.PushConfig
	HTTP   *http.Client
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *PushChannel) Send(ctx context.Context, ev Event) error {
	if c == nil || c.Store == nil {
		return nil
	}
	if strings.TrimSpace(ev.UserID) == "" {
		return nil
	}
	subs, err := c.Store.ListPushSubscriptionsByUser(ctx, ev.UserID)
	if err != nil {
		return err
	}
	var firstErr error
	for _, sub := range subs {
		if err := c.deliverOne(ctx, sub, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *PushChannel) deliverOne(ctx context.Context, sub models.PushSubscription, ev Event) error {
	body, err := json.Marshal(map[string]any{
		"title":      ev.Title,
		"body":       ev.Body,
		"type":       ev.Type,
		"account_id": ev.AccountID,
		"severity":   ev.Severity,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Config.TTL > 0 {
		req.Header.Set("TTL", strconv.Itoa(c.Config.TTL))
	}
	if strings.TrimSpace(c.Config.Topic) != "" {
		req.Header.Set("Topic", c.Config.Topic)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// Subscription is dead, clean it up.
		_ = c.Store.DeletePushSubscriptionByEndpoint(ctx, sub.Endpoint)
		return fmt.Errorf("push endpoint gone (http %d), subscription removed", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("push delivery http %d", resp.StatusCode)
	}
	return nil
}
