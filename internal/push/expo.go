// Package push delivers notifications through the Expo push service.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultExpoURL is Expo's batch send endpoint.
const DefaultExpoURL = "https://exp.host/--/api/v2/push/send"

// expoTokenPrefix marks tokens issued by Expo.
const expoTokenPrefix = "ExponentPushToken["

// maxBodyRunes bounds the notification body shown on the lock screen.
const maxBodyRunes = 120

// Message is one Expo push message.  Field names follow Expo's JSON API.
type Message struct {
	To       string         `json:"to"`
	Title    string         `json:"title,omitempty"`
	Body     string         `json:"body,omitempty"`
	Sound    string         `json:"sound,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Priority string         `json:"priority,omitempty"`
}

// Ticket is Expo's per-message response.
type Ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// IsExpoToken reports whether token looks like an Expo push token.
func IsExpoToken(token string) bool {
	return strings.HasPrefix(token, expoTokenPrefix) && strings.HasSuffix(token, "]")
}

// Preview trims body for display, falling back to fallback when empty.
func Preview(body, fallback string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return fallback
	}
	r := []rune(body)
	if len(r) > maxBodyRunes {
		return string(r[:maxBodyRunes])
	}
	return body
}

// StatusError is returned when Expo answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("expo push failed: status %d: %s", e.StatusCode, e.Body)
}

// ExpoClient posts batches to the Expo push API.
type ExpoClient struct {
	url  string
	http *http.Client
}

// NewExpoClient returns a client for url (DefaultExpoURL when empty) with a
// 15 second request timeout.
func NewExpoClient(url string) *ExpoClient {
	if url == "" {
		url = DefaultExpoURL
	}
	return &ExpoClient{url: url, http: &http.Client{Timeout: 15 * time.Second}}
}

// Send posts msgs in one request and returns Expo's tickets.
func (c *ExpoClient) Send(ctx context.Context, msgs []Message) ([]Ticket, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("marshal push batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("expo push request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read expo response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		Data []Ticket `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("expo returned non-JSON response: %w", err)
	}
	return out.Data, nil
}
