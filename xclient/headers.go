package xclient

import stealth "github.com/anatolykoptev/go-stealth"

const (
	twitterBase   = "https://x.com/i/api/graphql"
	twitterAPIURL = "https://api.twitter.com"
)

// bearerToken is the well-known web-app bearer token.
const bearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// defaultUserAgent is the fallback User-Agent when none is configured.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// sessionHeaders returns the base headers required by the GraphQL API for
// an authenticated session.
func sessionHeaders(authToken, ct0, userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	h := map[string]string{
		"authorization":             "Bearer " + bearerToken,
		"x-csrf-token":              ct0,
		"x-twitter-active-user":     "yes",
		"x-twitter-auth-type":       "OAuth2Session",
		"x-twitter-client-language": "en",
		"content-type":              "application/json",
		"cookie":                    "auth_token=" + authToken + "; ct0=" + ct0,
		"user-agent":                userAgent,
		"accept":                    "*/*",
		"accept-language":           "en-US,en;q=0.9",
		"accept-encoding":           "gzip, deflate, br",
		"referer":                   "https://twitter.com/",
		"origin":                    "https://twitter.com",
		"sec-fetch-dest":            "empty",
		"sec-fetch-mode":            "cors",
		"sec-fetch-site":            "same-origin",
	}
	if ch := stealth.ClientHintsHeaders(userAgent); ch != nil {
		for k, v := range ch {
			h[k] = v
		}
	}
	return h
}

// loginFlowHeaders returns headers for the onboarding flow API.
func loginFlowHeaders(guestToken string) map[string]string {
	return map[string]string{
		"authorization":             "Bearer " + bearerToken,
		"content-type":              "application/json",
		"x-guest-token":             guestToken,
		"x-twitter-active-user":     "yes",
		"x-twitter-client-language": "en",
		"user-agent":                defaultUserAgent,
		"accept":                    "*/*",
		"accept-language":           "en-US,en;q=0.9",
		"referer":                   "https://twitter.com/",
		"origin":                    "https://twitter.com",
	}
}

// headerOrder keeps the header order stable for TLS fingerprint consistency.
var headerOrder = []string{
	"authorization",
	"content-type",
	"x-csrf-token",
	"x-twitter-active-user",
	"x-twitter-client-language",
	"sec-ch-ua",
	"sec-ch-ua-mobile",
	"sec-ch-ua-platform",
	"sec-fetch-dest",
	"sec-fetch-mode",
	"sec-fetch-site",
	"cookie",
	"user-agent",
	"accept",
	"accept-language",
	"accept-encoding",
}
