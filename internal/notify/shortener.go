package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"billing/internal/domain"
)

// Shortener trims payment links before they go into an SMS. When the
// service is not configured or fails, Shorten returns the long URL so
// the message still carries a working link. Domain is the public base
// the short codes resolve under; a code is prefixed with it unless the
// service already answered with a full URL.
type Shortener struct {
	URL    string
	Key    string
	Domain string
	HTTP   *http.Client
}

func NewShortener(url, key, domain string) *Shortener {
	return &Shortener{URL: url, Key: key, Domain: domain, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

func (s *Shortener) Shorten(ctx context.Context, longURL string) (string, error) {
	if s.URL == "" || s.Key == "" {
		return longURL, nil
	}

	body, err := json.Marshal(map[string]string{"longUrl": longURL})
	if err != nil {
		return longURL, domain.ExternalServiceError{Service: "shortener", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL+"?key="+s.Key, bytes.NewReader(body))
	if err != nil {
		return longURL, domain.ExternalServiceError{Service: "shortener", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return longURL, domain.ExternalServiceError{Service: "shortener", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return longURL, domain.ExternalServiceError{
			Service: "shortener",
			Err:     fmt.Errorf("service returned status %d", resp.StatusCode),
		}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.ID == "" {
		return longURL, domain.ExternalServiceError{Service: "shortener", Err: err}
	}
	return s.shortLink(out.ID), nil
}

func (s *Shortener) shortLink(id string) string {
	if s.Domain == "" || strings.Contains(id, "://") {
		return id
	}
	return strings.TrimRight(s.Domain, "/") + "/" + id
}
