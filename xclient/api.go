package xclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/finchbot/finch/twitter"
)

// GetProfile fetches a user profile by screen name.
func (c *Client) GetProfile(ctx context.Context, username string) (*twitter.Profile, error) {
	variables := map[string]any{
		"screen_name":              username,
		"withSafetyModeUserFields": true,
	}
	url, err := endpointURL("UserByScreenName")
	if err != nil {
		return nil, err
	}
	url = addGraphQLParams(url, variables, endpoints["UserByScreenName"].Features)

	body, err := c.doAuthed(ctx, "UserByScreenName", "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("UserByScreenName: %w", err)
	}
	return parseProfile(body)
}

// FetchTimeline fetches up to count raw records from the latest home
// timeline. Records come back as-received so the normalizer owns shape
// interpretation.
func (c *Client) FetchTimeline(ctx context.Context, count int, excludeIDs []string) ([]json.RawMessage, error) {
	seen := excludeIDs
	if seen == nil {
		seen = []string{}
	}
	variables := map[string]any{
		"count":                  count,
		"includePromotedContent": false,
		"latestControlAvailable": true,
		"requestContext":         "launch",
		"seenTweetIds":           seen,
	}
	url, err := endpointURL("HomeLatestTimeline")
	if err != nil {
		return nil, err
	}
	url = addGraphQLParams(url, variables, endpoints["HomeLatestTimeline"].Features)

	body, err := c.doAuthed(ctx, "HomeLatestTimeline", "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("HomeLatestTimeline: %w", err)
	}
	return parseTimelineResults(body)
}

// SendTweet posts text through the CreateTweet mutation and returns the
// raw response envelope for the caller to validate.
func (c *Client) SendTweet(ctx context.Context, text string) (*twitter.SendResponse, error) {
	url, err := endpointURL("CreateTweet")
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]any{
		"variables": map[string]any{
			"tweet_text":   text,
			"dark_request": false,
			"media": map[string]any{
				"media_entities":     []any{},
				"possibly_sensitive": false,
			},
			"semantic_annotation_ids": []any{},
		},
		"features": endpoints["CreateTweet"].Features,
		"queryId":  endpoints["CreateTweet"].ID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal CreateTweet payload: %w", err)
	}

	body, err := c.doAuthed(ctx, "CreateTweet", "POST", url, payload)
	if err != nil {
		return nil, fmt.Errorf("CreateTweet: %w", err)
	}

	var resp twitter.SendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal CreateTweet response: %w", err)
	}
	return &resp, nil
}

// --- Response parsing ---

type userResult struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Legacy   struct {
		Name            string `json:"name"`
		ScreenName      string `json:"screen_name"`
		FollowersCount  int    `json:"followers_count"`
		FriendsCount    int    `json:"friends_count"`
		StatusesCount   int    `json:"statuses_count"`
		ListedCount     int    `json:"listed_count"`
		CreatedAt       string `json:"created_at"`
		Verified        bool   `json:"verified"`
		Description     string `json:"description"`
		ProfileImageURL string `json:"profile_image_url_https"`
	} `json:"legacy"`
	IsBlueVerified bool `json:"is_blue_verified"`
}

// parseProfile parses the UserByScreenName response into a Profile.
func parseProfile(body []byte) (*twitter.Profile, error) {
	var raw struct {
		Data struct {
			User struct {
				Result userResult `json:"result"`
			} `json:"user"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal UserByScreenName: %w", err)
	}
	if len(raw.Errors) > 0 {
		return nil, fmt.Errorf("API error: %s", raw.Errors[0].Message)
	}

	r := raw.Data.User.Result
	if r.TypeName == "UserUnavailable" {
		return nil, fmt.Errorf("user unavailable (suspended or restricted)")
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("empty user rest_id (typename=%s)", r.TypeName)
	}

	var joined time.Time
	if r.Legacy.CreatedAt != "" {
		if t, err := time.Parse("Mon Jan 02 15:04:05 +0000 2006", r.Legacy.CreatedAt); err == nil {
			joined = t
		}
	}

	return &twitter.Profile{
		ID:             r.RestID,
		Username:       r.Legacy.ScreenName,
		Name:           r.Legacy.Name,
		Biography:      strings.TrimSpace(r.Legacy.Description),
		FollowersCount: r.Legacy.FollowersCount,
		FollowingCount: r.Legacy.FriendsCount,
		TweetsCount:    r.Legacy.StatusesCount,
		ListedCount:    r.Legacy.ListedCount,
		Joined:         joined,
		IsVerified:     r.Legacy.Verified || r.IsBlueVerified,
		Avatar:         r.Legacy.ProfileImageURL,
	}, nil
}

type timelineObj struct {
	Instructions []struct {
		Type    string `json:"type"`
		Entries []struct {
			EntryID string `json:"entryId"`
			Content struct {
				EntryType   string          `json:"entryType"`
				TypeName    string          `json:"__typename"`
				ItemContent json.RawMessage `json:"itemContent"`
			} `json:"content"`
		} `json:"entries"`
	} `json:"instructions"`
}

// parseTimelineResults extracts the raw tweet result objects from a
// HomeLatestTimeline response, preserving entry order.
func parseTimelineResults(body []byte) ([]json.RawMessage, error) {
	var raw struct {
		Data struct {
			Home struct {
				HomeTimelineURT timelineObj `json:"home_timeline_urt"`
			} `json:"home"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal home timeline: %w", err)
	}

	var results []json.RawMessage
	for _, instruction := range raw.Data.Home.HomeTimelineURT.Instructions {
		for _, entry := range instruction.Entries {
			if entry.Content.ItemContent == nil {
				continue
			}
			var item struct {
				TypeName     string `json:"__typename"`
				TweetResults struct {
					Result json.RawMessage `json:"result"`
				} `json:"tweet_results"`
			}
			if err := json.Unmarshal(entry.Content.ItemContent, &item); err != nil {
				continue
			}
			if item.TypeName != "TimelineTweet" {
				continue
			}
			if res := item.TweetResults.Result; len(res) > 0 && string(res) != "null" {
				results = append(results, res)
			}
		}
	}
	return results, nil
}
