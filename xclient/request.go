package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

const maxRequestRetries = 3

// ct0MaxAge is the maximum age of a ct0 token before proactive rotation.
const ct0MaxAge = 4 * time.Hour

// do executes one HTTP round trip with the fixed header order.
func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, map[string]string, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}
	return c.bc.DoWithHeaderOrder(method, url, headers, body, headerOrder)
}

// doAuthed executes an authenticated request with retry, proactive ct0
// rotation, and a single CSRF-rotation retry per attempt. Auth expiry is
// surfaced to the caller; the session manager owns re-login policy.
func (c *Client) doAuthed(ctx context.Context, operation, method, url string, payload []byte) ([]byte, error) {
	if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := range maxRequestRetries {
		if attempt > 0 {
			delay := stealth.DefaultBackoff.Duration(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if c.ct0Age() > ct0MaxAge {
			c.rotateCT0()
			slog.Debug("ct0 rotated (proactive)", slog.String("operation", operation))
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		body, respHdrs, status, err := c.do(ctx, method, url, c.authedHeaders(), reqBody)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case status == 429:
			reset := parseRateLimitReset(respHdrs["x-rate-limit-reset"])
			slog.Warn("rate limited",
				slog.String("operation", operation),
				slog.Time("reset", reset))
			lastErr = fmt.Errorf("%s rate limited until %s", operation, reset.Format(time.RFC3339))
			continue

		case status == 401 || status == 403:
			if classifyError(body) == errCSRF {
				if body2, ok := c.retryAfterCT0Rotation(ctx, method, url, payload); ok {
					return body2, nil
				}
				lastErr = fmt.Errorf("CSRF retry failed")
				continue
			}
			return nil, fmt.Errorf("%s HTTP %d: %s", operation, status, truncateBytes(body, 200))

		case status != 200:
			return nil, fmt.Errorf("%s HTTP %d: %s", operation, status, truncateBytes(body, 200))
		}

		// HTTP 200 — check for error codes in the body.
		switch classifyError(body) {
		case errNone:
			c.adoptServerCT0(respHdrs)
			return body, nil

		case errCSRF:
			slog.Warn("CSRF error 353, rotating ct0", slog.String("operation", operation))
			if body2, ok := c.retryAfterCT0Rotation(ctx, method, url, payload); ok {
				return body2, nil
			}
			lastErr = fmt.Errorf("CSRF retry failed")
			continue

		case errInternal:
			if hasResponseData(body) {
				slog.Debug("error 131 with usable data, treating as success", slog.String("operation", operation))
				c.adoptServerCT0(respHdrs)
				return body, nil
			}
			lastErr = fmt.Errorf("server internal error (131)")
			continue

		case errAuthExpired:
			return nil, fmt.Errorf("%s: session expired (code 32)", operation)

		default:
			return nil, fmt.Errorf("%s API error: %s", operation, truncateBytes(body, 200))
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%s failed after %d attempts: %w", operation, maxRequestRetries, lastErr)
	}
	return nil, fmt.Errorf("%s failed after %d attempts", operation, maxRequestRetries)
}

// retryAfterCT0Rotation rotates the ct0 token and repeats the request once.
func (c *Client) retryAfterCT0Rotation(ctx context.Context, method, url string, payload []byte) ([]byte, bool) {
	c.rotateCT0()
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	body, respHdrs, status, err := c.do(ctx, method, url, c.authedHeaders(), reqBody)
	if err != nil || (status != 200 && status != 201) || classifyError(body) != errNone {
		return nil, false
	}
	c.adoptServerCT0(respHdrs)
	return body, true
}

// adoptServerCT0 picks up a server-issued ct0 from set-cookie, if any.
func (c *Client) adoptServerCT0(respHdrs map[string]string) {
	if newCT0 := extractCT0FromHeaders(respHdrs); newCT0 != "" {
		_, cur := c.credentials()
		if newCT0 != cur {
			c.setCT0(newCT0)
		}
	}
}

// addGraphQLParams builds the full URL with variables, features, and
// optional fieldToggles.
func addGraphQLParams(url string, variables, features map[string]any, fieldToggles ...map[string]any) string {
	v, _ := json.Marshal(variables)
	f, _ := json.Marshal(features)
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	result := url + sep + "variables=" + jsonEscape(v) + "&features=" + jsonEscape(f)
	if len(fieldToggles) > 0 && fieldToggles[0] != nil {
		ft, _ := json.Marshal(fieldToggles[0])
		result += "&fieldToggles=" + jsonEscape(ft)
	}
	return result
}

func jsonEscape(b []byte) string {
	var result strings.Builder
	for _, ch := range string(b) {
		switch ch {
		case ' ':
			result.WriteString("%20")
		case '"':
			result.WriteString("%22")
		case '{':
			result.WriteString("%7B")
		case '}':
			result.WriteString("%7D")
		case '[':
			result.WriteString("%5B")
		case ']':
			result.WriteString("%5D")
		case ':':
			result.WriteString("%3A")
		case ',':
			result.WriteString("%2C")
		case '\'':
			result.WriteString("%27")
		case '|':
			result.WriteString("%7C")
		default:
			result.WriteRune(ch)
		}
	}
	return result.String()
}
