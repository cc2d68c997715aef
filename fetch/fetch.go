// Package fetch provides the shared HTTP JSON client used by every
// external lookup: organization registry, scholarly indexes, geocoder.
//
// Runs are strictly sequential; every live request is preceded by a fixed
// politeness delay, carries a descriptive User-Agent and a mailto parameter,
// and is retried exactly once after a backoff on transport failure.
package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout = 25 * time.Second
	defaultDelay   = 800 * time.Millisecond
	defaultBackoff = 1500 * time.Millisecond
)

// Client performs throttled JSON GET requests.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	Email      string

	// Delay is slept before every live request.
	Delay time.Duration
	// Backoff is slept before the single retry.
	Backoff time.Duration

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

// NewClient builds a Client with the standard timeout, delay, and backoff.
// email is attached as a mailto query parameter and in the User-Agent for
// API etiquette; it may be empty.
func NewClient(email string) *Client {
	ua := "pinmap/1.0"
	if email != "" {
		ua = fmt.Sprintf("pinmap/1.0 (%s)", email)
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		UserAgent:  ua,
		Email:      email,
		Delay:      defaultDelay,
		Backoff:    defaultBackoff,
		sleep:      time.Sleep,
	}
}

// GetJSON fetches rawURL with params appended and decodes the response body
// into v. Transport failures and non-2xx statuses are retried once after the
// backoff; a second failure is returned as an error for the caller to treat
// as "no data" for that lookup.
func (c *Client) GetJSON(rawURL string, params url.Values, v any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url %q: %w", rawURL, err)
	}

	q := u.Query()
	for k, vals := range params {
		for _, val := range vals {
			q.Set(k, val)
		}
	}
	if c.Email != "" && q.Get("mailto") == "" {
		q.Set("mailto", c.Email)
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		if attempt > 0 {
			c.sleep(c.Backoff)
		}
		c.sleep(c.Delay)

		if err := c.getOnce(u.String(), v); err != nil {
			slog.Debug("request failed", "url", u.String(), "attempt", attempt, "error", err)
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (c *Client) getOnce(url string, v any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	slog.Debug("request complete", "url", url, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}
