package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// PlaceholderKurkartenURL is used while no registration API is configured.
const PlaceholderKurkartenURL = "https://example.com/kurkarten-placeholder"

// RegistrationProvider returns the tourist-card registration link for a guest.
type RegistrationProvider interface {
	FetchRegistrationURL(ctx context.Context, email string) (string, error)
}

// KurkartenClient calls the municipality registration API.
type KurkartenClient struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewKurkartenClient(baseURL string, timeout time.Duration) *KurkartenClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KurkartenClient{
		BaseURL:    strings.TrimSpace(baseURL),
		Timeout:    timeout,
		HTTPClient: &http.Client{},
	}
}

// FetchRegistrationURL never waits longer than Timeout. The response body must
// carry the link as "url" or "data.url".
func (c *KurkartenClient) FetchRegistrationURL(ctx context.Context, email string) (string, error) {
	if c.BaseURL == "" {
		return PlaceholderKurkartenURL, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad api url: %v", ErrRegistrationURL, err)
	}
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRegistrationURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRegistrationURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrRegistrationURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrRegistrationURL, resp.StatusCode)
	}

	for _, path := range []string{"url", "data.url"} {
		if v := gjson.GetBytes(body, path); v.Exists() && strings.TrimSpace(v.String()) != "" {
			return strings.TrimSpace(v.String()), nil
		}
	}
	return "", fmt.Errorf("%w: no url in response", ErrRegistrationURL)
}
