package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sakif/datepoll/internal/model"
)

// webhookTimeout bounds a single delivery attempt. The confirming voter's
// request is waiting behind this call, so it must stay short.
const webhookTimeout = 5 * time.Second

// WebhookNotifier POSTs each confirmation to a coordinator-operated URL as a
// small JSON payload. Whatever sits behind the URL (a chat bridge, a Slack
// incoming webhook, a script) is the coordinator's business — this side only
// guarantees the shape of the payload.
//
// Payload:
//
//	{"userId":"42","username":"alice","dates":["2025-06-05","2025-06-12"]}
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier for the given URL.
// The injected client is optional; nil gets a client with the package timeout.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: webhookTimeout}
	}
	return &WebhookNotifier{url: url, client: client}
}

// confirmationPayload is the wire shape of one confirmation.
type confirmationPayload struct {
	UserID   string       `json:"userId"`
	Username string       `json:"username"`
	Dates    []model.Date `json:"dates"`
}

// SelectionConfirmed delivers one confirmation. A non-2xx response counts as
// a delivery failure — the caller decides what to do with it (the poll engine
// logs and moves on).
func (n *WebhookNotifier) SelectionConfirmed(ctx context.Context, user model.User, dates []model.Date) error {
	body, err := json.Marshal(confirmationPayload{
		UserID:   user.ID,
		Username: user.Username,
		Dates:    dates,
	})
	if err != nil {
		return fmt.Errorf("notify: encoding confirmation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: delivering confirmation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
