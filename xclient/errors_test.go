package xclient

import (
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected errorClass
	}{
		{"no errors", `{"data":{"user":{}}}`, errNone},
		{"empty errors", `{"errors":[]}`, errNone},
		{"rate abuse 88", `{"errors":[{"code":88}]}`, errRateAbuse},
		{"suspended 64", `{"errors":[{"code":64}]}`, errSuspended},
		{"locked 326", `{"errors":[{"code":326}]}`, errLocked},
		{"csrf 353", `{"errors":[{"code":353}]}`, errCSRF},
		{"auth expired 32", `{"errors":[{"code":32}]}`, errAuthExpired},
		{"internal 131", `{"errors":[{"code":131}]}`, errInternal},
		{"unknown code", `{"errors":[{"code":999}]}`, errNone},
		{"invalid json", `{invalid`, errNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyError([]byte(tt.body))
			if result != tt.expected {
				t.Fatalf("classifyError(%s) = %d, want %d", tt.body, result, tt.expected)
			}
		})
	}
}

func TestParseRateLimitReset(t *testing.T) {
	reset := parseRateLimitReset("not-a-number")
	if time.Until(reset) < 14*time.Minute {
		t.Fatal("expected ~15min fallback for invalid input")
	}

	reset = parseRateLimitReset("")
	if time.Until(reset) < 14*time.Minute {
		t.Fatal("expected ~15min fallback for empty input")
	}
}

func TestGenerateCT0(t *testing.T) {
	ct0 := generateCT0()
	if len(ct0) != 64 {
		t.Fatalf("expected 64 char hex, got %d chars", len(ct0))
	}
	if ct0 == generateCT0() {
		t.Fatal("expected different ct0 values")
	}
}

func TestExtractCT0FromHeaders(t *testing.T) {
	tests := []struct {
		name     string
		cookie   string
		expected string
	}{
		{"present", "ct0=abc123; Path=/; Secure", "abc123"},
		{"with other cookies", "guest_id=x; ct0=def456; Path=/", "def456"},
		{"absent", "guest_id=x; Path=/", ""},
		{"empty value", "ct0=; Path=/", ""},
		{"no header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCT0FromHeaders(map[string]string{"set-cookie": tt.cookie})
			if got != tt.expected {
				t.Fatalf("extractCT0FromHeaders(%q) = %q, want %q", tt.cookie, got, tt.expected)
			}
		})
	}
}

func TestHasResponseData(t *testing.T) {
	if !hasResponseData([]byte(`{"data":{"home":{}}}`)) {
		t.Fatal("expected true for non-null data")
	}
	if hasResponseData([]byte(`{"data":null}`)) {
		t.Fatal("expected false for null data")
	}
	if hasResponseData([]byte(`{"errors":[]}`)) {
		t.Fatal("expected false for missing data")
	}
	if hasResponseData([]byte(`{broken`)) {
		t.Fatal("expected false for invalid json")
	}
}
