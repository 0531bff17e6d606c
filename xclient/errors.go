package xclient

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// errorClass categorizes API error responses for targeted handling.
type errorClass int

const (
	errNone        errorClass = iota
	errRateAbuse              // 88 — rate limit abuse
	errSuspended              // 64 — account suspended
	errLocked                 // 326 — account locked
	errCSRF                   // 353 — csrf token mismatch
	errAuthExpired            // 32 — could not authenticate
	errInternal               // 131 — server internal error
)

// classifyError inspects a response body for known API error codes.
func classifyError(body []byte) errorClass {
	var errResp struct {
		Errors []struct {
			Code int `json:"code"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return errNone
	}

	for _, e := range errResp.Errors {
		switch e.Code {
		case 88:
			return errRateAbuse
		case 64:
			return errSuspended
		case 326:
			return errLocked
		case 353:
			return errCSRF
		case 32:
			return errAuthExpired
		case 131:
			return errInternal
		}
	}
	return errNone
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}

// generateCT0 generates a random 32-byte hex string for use as a ct0
// CSRF token.
func generateCT0() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return strings.Repeat("0", 64)
	}
	return hex.EncodeToString(b)
}

// extractCT0FromHeaders parses the ct0 value from a set-cookie header.
func extractCT0FromHeaders(headers map[string]string) string {
	cookie := headers["set-cookie"]
	if cookie == "" {
		return ""
	}
	for _, part := range strings.Split(cookie, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "ct0=") {
			if val := strings.TrimPrefix(part, "ct0="); val != "" {
				return val
			}
		}
	}
	return ""
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// hasResponseData returns true if the JSON body has a non-null "data" field.
func hasResponseData(body []byte) bool {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	return len(probe.Data) > 0 && string(probe.Data) != "null"
}
