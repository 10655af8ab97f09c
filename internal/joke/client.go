// Package joke fetches plain-text jokes from an icanhazdadjoke-compatible
// HTTP service.
package joke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultURL is the public dad joke API.
const DefaultURL = "https://icanhazdadjoke.com/"

const maxBodySize = 16 << 10

// Config holds the joke service endpoint and call limits. Zero values are
// replaced with defaults.
type Config struct {
	URL        string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries uint64
	// InitialInterval is the first retry delay; it doubles up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c *Config) fillDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.UserAgent == "" {
		c.UserAgent = "roomchat (https://github.com/Tyrowin/roomchat)"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 2 * time.Second
	}
}

// MaxElapsed bounds how long one Joke call can take: every attempt runs to
// Timeout and every retry waits the longest randomized backoff interval.
func (c Config) MaxElapsed() time.Duration {
	c.fillDefaults()
	attempts := time.Duration(c.MaxRetries + 1)
	retries := time.Duration(c.MaxRetries)
	return attempts*c.Timeout + retries*c.MaxInterval*3/2
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("joke: unexpected status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("joke: unexpected status %d", e.StatusCode)
}

// retryable reports whether the status is worth another attempt.
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the joke service.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config, log *zap.Logger, opts ...Option) *Client {
	cfg.fillDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  log.Named("joke"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Joke fetches one joke. Transport errors, 429, and 5xx responses are retried
// with exponential backoff up to MaxRetries times; each attempt is bounded by
// Timeout.
func (c *Client) Joke(ctx context.Context) (string, error) {
	var joke string
	operation := func() error {
		text, err := c.fetch(ctx)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		joke = text
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Warn("joke request failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		return "", errors.Wrap(err, "fetch joke")
	}
	return joke, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxInterval = c.cfg.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, http.NoBody)
	if err != nil {
		return "", backoff.Permanent(errors.Wrap(err, "build joke request"))
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "joke request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", errors.Wrap(err, "read joke body")
	}
	text := strings.TrimSpace(string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: text}
	}
	return text, nil
}
