// Package xclient implements the twitter.Client capability against X's
// private GraphQL API for a single account.
package xclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/finchbot/finch/twitter"
)

// Config holds the single account this client authenticates.
type Config struct {
	Username   string
	Password   string
	Email      string
	TOTPSecret string
	Proxy      string
	UserAgent  string
}

// Client talks to X's GraphQL API over a browser-fingerprint HTTP client.
// It holds at most one authenticated session; the surrounding session
// manager owns login retries and liveness policy.
type Client struct {
	bc  *stealth.BrowserClient
	cfg Config

	mu             sync.Mutex
	authToken      string
	ct0            string
	ct0RefreshedAt time.Time
	guestToken     string
}

var _ twitter.Client = (*Client)(nil)

// New creates a client. No network traffic happens until Login or one of
// the fetch calls.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(headerOrder),
	}
	if cfg.Proxy != "" {
		opts = append(opts, stealth.WithProxy(cfg.Proxy))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}
	return &Client{bc: bc, cfg: cfg}, nil
}

// IsLoggedIn checks session liveness against the API. A client without
// credentials is trivially logged out; otherwise the account settings
// endpoint is the probe.
func (c *Client) IsLoggedIn(ctx context.Context) (bool, error) {
	authToken, _ := c.credentials()
	if authToken == "" {
		return false, nil
	}

	body, _, status, err := c.do(ctx, "GET", twitterAPIURL+"/1.1/account/settings.json", c.authedHeaders(), nil)
	if err != nil {
		return false, fmt.Errorf("verify session: %w", err)
	}
	if status == 401 || status == 403 {
		return false, nil
	}
	if status != 200 {
		return false, fmt.Errorf("verify session: HTTP %d: %s", status, truncateBytes(body, 200))
	}
	return classifyError(body) == errNone, nil
}

// GetCookies returns the session cookie blob in cookie-pair form.
func (c *Client) GetCookies() []string {
	authToken, ct0 := c.credentials()
	if authToken == "" {
		return nil
	}
	return []string{"auth_token=" + authToken, "ct0=" + ct0}
}

// credentials returns a snapshot of (authToken, ct0) under lock.
func (c *Client) credentials() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authToken, c.ct0
}

// setCredentials atomically updates auth_token and ct0.
func (c *Client) setCredentials(authToken, ct0 string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = authToken
	c.ct0 = ct0
	c.ct0RefreshedAt = time.Now()
}

// rotateCT0 generates a fresh ct0 token, keeping the auth token.
func (c *Client) rotateCT0() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ct0 = generateCT0()
	c.ct0RefreshedAt = time.Now()
}

// setCT0 adopts a ct0 issued by the server.
func (c *Client) setCT0(ct0 string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ct0 = ct0
	c.ct0RefreshedAt = time.Now()
}

// ct0Age returns the time since the ct0 token was last refreshed.
func (c *Client) ct0Age() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ct0RefreshedAt.IsZero() {
		return 24 * time.Hour
	}
	return time.Since(c.ct0RefreshedAt)
}

// authedHeaders builds authenticated request headers from the current
// credential snapshot.
func (c *Client) authedHeaders() map[string]string {
	authToken, ct0 := c.credentials()
	return sessionHeaders(authToken, ct0, c.cfg.UserAgent)
}
