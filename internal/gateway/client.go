// Package gateway is a thin client for the payment provider's REST API.
// Amounts are integer paise throughout; callers convert from rupees
// before reaching this package.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"billing/internal/domain"
)

type Client struct {
	BaseURL string
	Key     string
	Secret  string
	HTTP    *http.Client
}

func NewClient(baseURL, key, secret string) *Client {
	return &Client{
		BaseURL: baseURL,
		Key:     key,
		Secret:  secret,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Customer is the provider-side record a local user maps onto.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Plan struct {
	ID string `json:"id"`
}

type Subscription struct {
	ID        string `json:"id"`
	ShortURL  string `json:"short_url"`
	PlanID    string `json:"plan_id"`
	Status    string `json:"status"`
	ChargeAt  int64  `json:"charge_at"`
	TotalDues int    `json:"total_count"`
}

type Invoice struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Status   string `json:"status"`
}

// CreateCustomer registers the user with the provider; with
// fail_existing=0 the provider returns the existing record instead of
// erroring on a duplicate contact.
func (c *Client) CreateCustomer(ctx context.Context, name, email, contact string) (Customer, error) {
	var out Customer
	err := c.do(ctx, http.MethodPost, "/customers", map[string]any{
		"name":          name,
		"email":         email,
		"contact":       contact,
		"fail_existing": "0",
	}, &out)
	return out, err
}

func (c *Client) FetchCustomer(ctx context.Context, id string) (Customer, error) {
	var out Customer
	err := c.do(ctx, http.MethodGet, "/customers/"+id, nil, &out)
	return out, err
}

// CreatePlan registers a monthly recurring charge.
func (c *Client) CreatePlan(ctx context.Context, name string, amountPaise int64, intervalMonths int) (Plan, error) {
	var out Plan
	err := c.do(ctx, http.MethodPost, "/plans", map[string]any{
		"period":   "monthly",
		"interval": 1,
		"item": map[string]any{
			"name":     name,
			"amount":   amountPaise,
			"currency": "INR",
		},
	}, &out)
	return out, err
}

func (c *Client) CreateSubscription(ctx context.Context, planID, customerID string, totalCount int, startAt time.Time) (Subscription, error) {
	var out Subscription
	err := c.do(ctx, http.MethodPost, "/subscriptions", map[string]any{
		"plan_id":         planID,
		"customer_id":     customerID,
		"total_count":     totalCount,
		"start_at":        startAt.Unix(),
		"customer_notify": 1,
	}, &out)
	return out, err
}

// CreateInvoice raises a one-off payment request against the customer.
func (c *Client) CreateInvoice(ctx context.Context, customerID, description string, amountPaise int64) (Invoice, error) {
	var out Invoice
	err := c.do(ctx, http.MethodPost, "/invoices", map[string]any{
		"type":        "link",
		"customer_id": customerID,
		"description": description,
		"amount":      amountPaise,
		"currency":    "INR",
	}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return domain.ExternalServiceError{Service: "gateway", Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return domain.ExternalServiceError{Service: "gateway", Err: err}
	}
	req.SetBasicAuth(c.Key, c.Secret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.ExternalServiceError{Service: "gateway", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return domain.ExternalServiceError{
			Service: "gateway",
			Err:     fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, raw),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.ExternalServiceError{Service: "gateway", Err: err}
	}
	return nil
}
