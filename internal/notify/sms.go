// Package notify wraps the outbound SMS provider and the link
// shortener. Both are best-effort: callers log failures and move on, a
// reminder that never sends must not break a committed due.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"billing/internal/domain"
)

// SMSClient posts transactional messages to the provider's bulk API.
type SMSClient struct {
	URL     string
	AuthKey string
	Sender  string
	HTTP    *http.Client
}

func NewSMSClient(url, authKey, sender string) *SMSClient {
	return &SMSClient{
		URL:     url,
		AuthKey: authKey,
		Sender:  sender,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

type smsPayload struct {
	Sender  string       `json:"sender"`
	Route   string       `json:"route"`
	Country string       `json:"country"`
	SMS     []smsMessage `json:"sms"`
}

type smsMessage struct {
	Message string   `json:"message"`
	To      []string `json:"to"`
}

// Send delivers one message to every recipient number.
func (c *SMSClient) Send(ctx context.Context, message string, recipients []string) error {
	if c.AuthKey == "" || len(recipients) == 0 {
		return nil
	}

	body, err := json.Marshal(smsPayload{
		Sender:  c.Sender,
		Route:   "4",
		Country: "91",
		SMS:     []smsMessage{{Message: message, To: recipients}},
	})
	if err != nil {
		return domain.ExternalServiceError{Service: "sms", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return domain.ExternalServiceError{Service: "sms", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", c.AuthKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.ExternalServiceError{Service: "sms", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ExternalServiceError{
			Service: "sms",
			Err:     fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}
	return nil
}
