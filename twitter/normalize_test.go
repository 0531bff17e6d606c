package twitter

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestNormalizeFlatShapePriority(t *testing.T) {
	body := `{
		"id": "111",
		"rest_id": "999",
		"text": "flat text",
		"username": "flatuser",
		"likes": 42,
		"views": 7,
		"legacy": {
			"full_text": "legacy text",
			"favorite_count": 5,
			"user_id_str": "222"
		}
	}`

	posts, err := Normalize([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	p := posts[0]
	if p.ID != "111" {
		t.Fatalf("expected flat id 111, got %s", p.ID)
	}
	if p.Text != "flat text" {
		t.Fatalf("expected flat text, got %q", p.Text)
	}
	if p.Likes != 42 {
		t.Fatalf("expected flat likes 42, got %d", p.Likes)
	}
	if p.Views != 7 {
		t.Fatalf("expected flat views 7, got %d", p.Views)
	}
	if p.UserID != "222" {
		t.Fatalf("expected legacy user id fallback, got %s", p.UserID)
	}
}

func TestNormalizeNestedShapeFallback(t *testing.T) {
	body := `{
		"rest_id": "1845",
		"core": {
			"user_results": {
				"result": {
					"legacy": {"name": "Nested User", "screen_name": "nesteduser"}
				}
			}
		},
		"legacy": {
			"full_text": "hello from legacy",
			"created_at": "Mon Jan 02 15:04:05 +0000 2024",
			"conversation_id_str": "1845",
			"favorite_count": 10,
			"reply_count": 3,
			"retweet_count": 5,
			"quote_count": 2,
			"bookmark_count": 1,
			"is_quote_status": true,
			"entities": {
				"hashtags": [{"text": "golang"}],
				"media": [
					{"id_str": "m1", "media_url_https": "https://pbs.twimg.com/m1.jpg", "type": "photo", "alt_text": "a photo"},
					{"id_str": "m2", "media_url_https": "https://pbs.twimg.com/m2.mp4", "type": "video"}
				],
				"urls": [{"expanded_url": "https://example.com"}],
				"user_mentions": [{"id_str": "77", "screen_name": "friend", "name": "Friend"}]
			}
		},
		"views": {"count": "1000"}
	}`

	posts, err := Normalize([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	p := posts[0]
	if p.ID != "1845" {
		t.Fatalf("expected rest_id fallback, got %s", p.ID)
	}
	if p.Text != "hello from legacy" {
		t.Fatalf("expected legacy full_text, got %q", p.Text)
	}
	if p.Username != "nesteduser" || p.Name != "Nested User" {
		t.Fatalf("expected core user fields, got %s / %s", p.Username, p.Name)
	}
	if p.Likes != 10 || p.Replies != 3 || p.Retweets != 5 || p.Quotes != 2 {
		t.Fatalf("unexpected counters: %d %d %d %d", p.Likes, p.Replies, p.Retweets, p.Quotes)
	}
	if p.BookmarkCount == nil || *p.BookmarkCount != 1 {
		t.Fatalf("expected bookmark count 1, got %v", p.BookmarkCount)
	}
	if p.Views != 1000 {
		t.Fatalf("expected views 1000, got %d", p.Views)
	}
	if !p.IsQuoted {
		t.Fatal("expected is_quote_status flag")
	}
	if p.PermanentURL != "https://x.com/nesteduser/status/1845" {
		t.Fatalf("unexpected permanent url %q", p.PermanentURL)
	}
	if p.TimeParsed == nil || p.TimeParsed.Year() != 2024 {
		t.Fatalf("expected parsed created_at, got %v", p.TimeParsed)
	}
	if p.Timestamp == nil || *p.Timestamp != p.TimeParsed.Unix() {
		t.Fatalf("expected epoch-seconds timestamp, got %v", p.Timestamp)
	}
	if len(p.Photos) != 1 || p.Photos[0].ID != "m1" || p.Photos[0].AltText != "a photo" {
		t.Fatalf("unexpected photos %v", p.Photos)
	}
	if len(p.Videos) != 1 || p.Videos[0].ID != "m2" {
		t.Fatalf("unexpected videos %v", p.Videos)
	}
	if len(p.Hashtags) != 1 || p.Hashtags[0] != "golang" {
		t.Fatalf("unexpected hashtags %v", p.Hashtags)
	}
	if len(p.Mentions) != 1 || p.Mentions[0].Username != "friend" {
		t.Fatalf("unexpected mentions %v", p.Mentions)
	}
	if len(p.URLs) != 1 || p.URLs[0] != "https://example.com" {
		t.Fatalf("unexpected urls %v", p.URLs)
	}
}

func TestNormalizeCounterDefaults(t *testing.T) {
	posts, err := Normalize([]byte(`{"rest_id": "1"}`))
	if err != nil {
		t.Fatal(err)
	}
	p := posts[0]
	if p.Likes != 0 || p.Replies != 0 || p.Retweets != 0 || p.Quotes != 0 {
		t.Fatalf("expected zero counters, got %d %d %d %d", p.Likes, p.Replies, p.Retweets, p.Quotes)
	}
	if p.Views != 0 {
		t.Fatalf("expected zero views, got %d", p.Views)
	}
	if p.BookmarkCount != nil {
		t.Fatalf("expected nil bookmark count, got %v", p.BookmarkCount)
	}
	if p.PermanentURL != "" {
		t.Fatalf("permanent url must not be guessed without a username, got %q", p.PermanentURL)
	}
	if p.Timestamp != nil || p.TimeParsed != nil {
		t.Fatal("expected absent timestamps")
	}
}

func TestNormalizeNeverRaisesOnMissingFields(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"legacy": null}`,
		`{"legacy": {"entities": {}}}`,
		`{"quoted_status_result": {}}`,
		`{"quoted_status_result": {"result": null}}`,
		`{"views": "garbage"}`,
	} {
		if _, err := Normalize([]byte(body)); err != nil {
			t.Fatalf("Normalize(%s) = %v, want nil error", body, err)
		}
	}
}

func TestNormalizeMalformedInput(t *testing.T) {
	if _, err := Normalize([]byte(`{invalid`)); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

// quoteChain builds a quoted-post chain of the given depth.
func quoteChain(depth int) string {
	body := fmt.Sprintf(`{"rest_id": "d%d"}`, depth)
	for i := depth - 1; i >= 0; i-- {
		body = fmt.Sprintf(`{"rest_id": "d%d", "quoted_status_result": {"result": %s}}`, i, body)
	}
	return body
}

func TestNormalizeTraversalBound(t *testing.T) {
	posts, err := Normalize([]byte(quoteChain(6)))
	if err != nil {
		t.Fatal(err)
	}
	// Seed plus at most 3 dequeue iterations.
	if len(posts) != 4 {
		t.Fatalf("expected 4 posts from a deep chain, got %d", len(posts))
	}
	for i, p := range posts {
		want := fmt.Sprintf("d%d", i)
		if p.ID != want {
			t.Fatalf("post %d: expected id %s, got %s", i, want, p.ID)
		}
	}
	if posts[0].QuotedStatus != posts[1] || posts[2].QuotedStatus != posts[3] {
		t.Fatal("expected quoted-status links between adjacent chain entries")
	}
}

func TestNormalizeQuoteAndRetweetOrder(t *testing.T) {
	body := `{
		"rest_id": "root",
		"quoted_status_result": {"result": {"rest_id": "quoted"}},
		"retweeted_status_result": {"result": {"rest_id": "retweeted"}}
	}`

	posts, err := Normalize([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	if posts[0].ID != "root" || posts[1].ID != "quoted" || posts[2].ID != "retweeted" {
		t.Fatalf("unexpected order: %s %s %s", posts[0].ID, posts[1].ID, posts[2].ID)
	}
	if posts[0].QuotedStatus != posts[1] || posts[0].RetweetedStatus != posts[2] {
		t.Fatal("expected nested references on the seed post")
	}
}

func TestNormalizeFlatListsWinOverLegacy(t *testing.T) {
	body := `{
		"rest_id": "5",
		"photos": [],
		"legacy": {
			"entities": {
				"media": [{"id_str": "m1", "media_url_https": "https://pbs.twimg.com/m1.jpg", "type": "photo"}]
			}
		}
	}`

	posts, err := Normalize([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	// An explicit empty flat list takes priority over the legacy media array.
	if len(posts[0].Photos) != 0 {
		t.Fatalf("expected empty photos, got %v", posts[0].Photos)
	}
}

func TestNormalizeViewsShapes(t *testing.T) {
	tests := []struct {
		views    string
		expected int
	}{
		{`12`, 12},
		{`{"count": "340"}`, 340},
		{`{"count": ""}`, 0},
		{`null`, 0},
		{`{"state": "EnabledWithCount"}`, 0},
	}

	for _, tt := range tests {
		body := fmt.Sprintf(`{"rest_id": "1", "views": %s}`, tt.views)
		posts, err := Normalize(json.RawMessage(body))
		if err != nil {
			t.Fatal(err)
		}
		if posts[0].Views != tt.expected {
			t.Fatalf("views %s = %d, want %d", tt.views, posts[0].Views, tt.expected)
		}
	}
}
