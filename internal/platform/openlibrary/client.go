package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://openlibrary.org"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 2 << 20
)

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient builds a client for baseURL. The timeout bounds every lookup
// including redirects and body reads; rps <= 0 disables outbound pacing.
func NewClient(baseURL, userAgent string, rps int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Every(time.Second / time.Duration(rps))
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		baseURL:   strings.TrimRight(baseURL, "/"),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// FetchByISBN looks up the edition for isbn. It makes a single attempt;
// failures are *Error values matching ErrNotFound or ErrUnavailable.
func (c *Client) FetchByISBN(ctx context.Context, isbn string) (*Edition, error) {
	u := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, unavailable(isbn, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, unavailable(isbn, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("isbn", isbn).Msg("openlibrary request failed")
		return nil, unavailable(isbn, 0, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("isbn", isbn).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("openlibrary lookup")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, notFound(isbn)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, unavailable(isbn, resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var edition Edition
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&edition); err != nil {
		return nil, unavailable(isbn, resp.StatusCode, fmt.Errorf("decode edition: %w", err))
	}
	return &edition, nil
}
