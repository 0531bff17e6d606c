package xclient

import "testing"

func TestParseProfile(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"__typename": "User",
					"rest_id": "12345",
					"legacy": {
						"name": "Test User",
						"screen_name": "testuser",
						"followers_count": 100,
						"friends_count": 50,
						"statuses_count": 200,
						"listed_count": 5,
						"created_at": "Mon Jan 02 15:04:05 +0000 2020",
						"verified": false,
						"description": " Hello world ",
						"profile_image_url_https": "https://pbs.twimg.com/profile_images/123/photo.jpg"
					},
					"is_blue_verified": true
				}
			}
		}
	}`

	profile, err := parseProfile([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if profile.ID != "12345" {
		t.Fatalf("expected ID 12345, got %s", profile.ID)
	}
	if profile.Username != "testuser" {
		t.Fatalf("expected username testuser, got %s", profile.Username)
	}
	if profile.Biography != "Hello world" {
		t.Fatalf("expected trimmed bio, got %q", profile.Biography)
	}
	if profile.FollowersCount != 100 || profile.FollowingCount != 50 {
		t.Fatalf("unexpected counts: %d / %d", profile.FollowersCount, profile.FollowingCount)
	}
	if !profile.IsVerified {
		t.Fatal("expected verified (blue)")
	}
	if profile.Joined.Year() != 2020 {
		t.Fatalf("expected joined 2020, got %v", profile.Joined)
	}
}

func TestParseProfileUnavailable(t *testing.T) {
	body := `{"data": {"user": {"result": {"__typename": "UserUnavailable", "rest_id": ""}}}}`
	if _, err := parseProfile([]byte(body)); err == nil {
		t.Fatal("expected error for unavailable user")
	}
}

func TestParseProfileAPIError(t *testing.T) {
	body := `{"errors": [{"message": "Not authorized"}]}`
	if _, err := parseProfile([]byte(body)); err == nil {
		t.Fatal("expected error for API error response")
	}
}

func TestParseTimelineResults(t *testing.T) {
	body := `{
		"data": {
			"home": {
				"home_timeline_urt": {
					"instructions": [{
						"type": "TimelineAddEntries",
						"entries": [
							{
								"entryId": "tweet-1",
								"content": {
									"entryType": "TimelineTimelineItem",
									"itemContent": {
										"__typename": "TimelineTweet",
										"tweet_results": {"result": {"rest_id": "1"}}
									}
								}
							},
							{
								"entryId": "cursor-bottom-2",
								"content": {
									"entryType": "TimelineTimelineCursor",
									"__typename": "TimelineTimelineCursor"
								}
							},
							{
								"entryId": "tweet-3",
								"content": {
									"entryType": "TimelineTimelineItem",
									"itemContent": {
										"__typename": "TimelineTweet",
										"tweet_results": {"result": {"rest_id": "3"}}
									}
								}
							}
						]
					}]
				}
			}
		}
	}`

	results, err := parseTimelineResults([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 tweet results, got %d", len(results))
	}
	if string(results[0]) != `{"rest_id": "1"}` {
		t.Fatalf("unexpected first result: %s", results[0])
	}
}

func TestParseTimelineResultsEmpty(t *testing.T) {
	results, err := parseTimelineResults([]byte(`{"data": {"home": {"home_timeline_urt": {"instructions": []}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
