package twitter

import (
	"context"
	"encoding/json"
	"time"
)

// Client is the transport capability the session manager depends on.
// Concrete implementations (xclient against the live GraphQL API, fakes in
// tests) are swappable behind this interface.
type Client interface {
	// IsLoggedIn reports whether the underlying connection currently holds
	// a live authenticated session. The client, not cached state, is the
	// source of truth.
	IsLoggedIn(ctx context.Context) (bool, error)

	// Login performs the platform's login flow with the given credentials.
	Login(ctx context.Context, username, password, email string) error

	// GetCookies returns the opaque session cookie blob after a login.
	GetCookies() []string

	// GetProfile fetches the profile for a screen name.
	GetProfile(ctx context.Context, username string) (*Profile, error)

	// FetchTimeline returns up to count raw timeline records, excluding
	// the given tweet IDs. Records are returned as-received; normalization
	// is the caller's concern.
	FetchTimeline(ctx context.Context, count int, excludeIDs []string) ([]json.RawMessage, error)

	// SendTweet posts text and returns the raw response envelope.
	SendTweet(ctx context.Context, text string) (*SendResponse, error)
}

// Profile is an account profile as fetched after login.
type Profile struct {
	ID             string
	Username       string
	Name           string
	Biography      string
	FollowersCount int
	FollowingCount int
	TweetsCount    int
	ListedCount    int
	Joined         time.Time
	IsVerified     bool
	Avatar         string
}

// SendResponse is the envelope returned by the CreateTweet mutation. The
// success marker is a non-null data.create_tweet.tweet_results.result.
type SendResponse struct {
	Data struct {
		CreateTweet struct {
			TweetResults struct {
				Result json.RawMessage `json:"result"`
			} `json:"tweet_results"`
		} `json:"create_tweet"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Confirmed reports whether the envelope carries the nested
// success-confirmation object.
func (r *SendResponse) Confirmed() bool {
	if r == nil {
		return false
	}
	res := r.Data.CreateTweet.TweetResults.Result
	return len(res) > 0 && string(res) != "null"
}

// TweetID extracts the created tweet's rest_id from a confirmed
// envelope, or "" when absent.
func (r *SendResponse) TweetID() string {
	if !r.Confirmed() {
		return ""
	}
	var result struct {
		RestID string `json:"rest_id"`
	}
	if err := json.Unmarshal(r.Data.CreateTweet.TweetResults.Result, &result); err != nil {
		return ""
	}
	return result.RestID
}
