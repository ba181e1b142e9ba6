// notify/webhook.go
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"riskguard/logs"
)

// Webhook delivers breach and pass events to the configured endpoint.
// Delivery is fire-and-forget: a failed post is logged and dropped, the
// settlement record is what guarantees at-most-once semantics.
type Webhook struct {
	URL    string
	Secret string
	Http   *http.Client
}

// NewWebhook creates a webhook publisher with a bounded timeout.
func NewWebhook(url, secret string, timeoutSeconds int) *Webhook {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 5
	}
	return &Webhook{
		URL:    url,
		Secret: secret,
		Http:   &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

// breachEvent is the JSON body for a drawdown violation.
type breachEvent struct {
	Event     string  `json:"event"`
	EventID   string  `json:"event_id"`
	Login     int64   `json:"login"`
	Reason    string  `json:"reason"`
	Equity    float64 `json:"equity"`
	Balance   float64 `json:"balance"`
	Limit     float64 `json:"limit"`
	Reference float64 `json:"reference"`
	Timestamp string  `json:"timestamp"`
}

// passEvent is the JSON body for a reached profit target.
type passEvent struct {
	Event     string  `json:"event"`
	EventID   string  `json:"event_id"`
	Login     int64   `json:"login"`
	Equity    float64 `json:"equity"`
	Balance   float64 `json:"balance"`
	Target    float64 `json:"target"`
	Timestamp string  `json:"timestamp"`
}

// PublishBreach posts an account_breached event. Returns the event id used,
// so callers can journal it alongside the violation record.
func (w *Webhook) PublishBreach(login int64, reason string, equity, balance, limit, reference float64) string {
	id := uuid.NewString()
	w.post(breachEvent{
		Event:     "account_breached",
		EventID:   id,
		Login:     login,
		Reason:    reason,
		Equity:    equity,
		Balance:   balance,
		Limit:     limit,
		Reference: reference,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return id
}

// PublishPass posts an account_passed event.
func (w *Webhook) PublishPass(login int64, equity, balance, target float64) string {
	id := uuid.NewString()
	w.post(passEvent{
		Event:     "account_passed",
		EventID:   id,
		Login:     login,
		Equity:    equity,
		Balance:   balance,
		Target:    target,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return id
}

func (w *Webhook) post(payload interface{}) {
	if w.URL == "" {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logs.Errorf("[Webhook] Failed to marshal event: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, w.URL, bytes.NewReader(data))
	if err != nil {
		logs.Errorf("[Webhook] Failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Secret != "" {
		req.Header.Set("x-secret", w.Secret)
	}

	resp, err := w.Http.Do(req)
	if err != nil {
		logs.Errorf("[Webhook] Delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logs.Errorf("[Webhook] Endpoint returned HTTP %d", resp.StatusCode)
		return
	}
	logs.Debugf("[Webhook] Event delivered, HTTP %d", resp.StatusCode)
}
