package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/clout9/backend/pkg/config"
	"github.com/clout9/backend/pkg/telemetry"
)

// Pusher delivers one push message to one device registration
type Pusher interface {
	Push(ctx context.Context, registrationID, title, body string) error
}

// FCMPusher sends messages through the FCM legacy HTTP endpoint
type FCMPusher struct {
	cfg    *config.PushConfig
	client *http.Client
}

// NewFCMPusher creates a pusher against the configured FCM endpoint
func NewFCMPusher(cfg *config.PushConfig, client *http.Client) *FCMPusher {
	if client == nil {
		client = http.DefaultClient
	}
	return &FCMPusher{cfg: cfg, client: client}
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmRequest struct {
	To           string          `json:"to"`
	Notification fcmNotification `json:"notification"`
}

// Push sends a notification to a single registration id
func (p *FCMPusher) Push(ctx context.Context, registrationID, title, body string) error {
	ctx, span := telemetry.StartSpan(ctx, "fcm.send")
	defer span.End()

	payload, err := json.Marshal(fcmRequest{
		To:           registrationID,
		Notification: fcmNotification{Title: title, Body: body},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.SendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.cfg.ServerKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push request returned status %d", resp.StatusCode)
	}
	return nil
}
