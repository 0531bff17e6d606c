package twitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// createdAtLayout is the ruby-style date format used by legacy payloads.
const createdAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

// maxTraversalIterations bounds the quote/retweet unwrapping loop. The
// bound is on dequeue iterations, not nesting depth, so deeply threaded
// chains are truncated silently. Callers must not assume all nested
// content is captured.
const maxTraversalIterations = 3

// Photo is one attached image.
type Photo struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

// Video is one attached video.
type Video struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
	URL     string `json:"url"`
}

// Mention is one @-mentioned user.
type Mention struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// CanonicalPost is the normalized, schema-stable representation of one
// post, independent of which raw response shape it came from. Counters
// default to 0 ("no engagement" is a first-class value); BookmarkCount
// stays nil when no source provides it.
type CanonicalPost struct {
	ID                string
	ConversationID    string
	Name              string
	Username          string
	UserID            string
	Text              string
	HTML              string
	Language          string
	TimeParsed        *time.Time
	Timestamp         *int64
	Likes             int
	Replies           int
	Retweets          int
	Quotes            int
	BookmarkCount     *int
	Views             int
	Photos            []Photo
	Videos            []Video
	Hashtags          []string
	Mentions          []Mention
	URLs              []string
	PermanentURL      string
	InReplyToStatusID string
	QuotedStatusID    string
	RetweetedStatusID string
	IsQuoted          bool
	IsPin             bool
	IsReply           bool
	IsRetweet         bool
	IsSelfThread      bool
	SensitiveContent  bool
	Poll              json.RawMessage
	Place             json.RawMessage
	QuotedStatus      *CanonicalPost
	RetweetedStatus   *CanonicalPost
}

// rawPost covers both raw shapes the platform has emitted: the flat shape
// with top-level fields and the nested GraphQL shape with fields buried
// under legacy / core.user_results.result.legacy / user_results.result.legacy.
// One decoded struct per record; the resolver below walks the fallback
// chain per canonical field.
type rawPost struct {
	// Flat shape.
	ID                string           `json:"id"`
	IDStr             string           `json:"id_str"`
	ConversationID    string           `json:"conversationId"`
	Name              string           `json:"name"`
	Username          string           `json:"username"`
	UserID            string           `json:"userId"`
	Text              string           `json:"text"`
	HTML              string           `json:"html"`
	TimeParsed        string           `json:"timeParsed"`
	Timestamp         *float64         `json:"timestamp"`
	Likes             *int             `json:"likes"`
	Replies           *int             `json:"replies"`
	Retweets          *int             `json:"retweets"`
	Quotes            *int             `json:"quotes"`
	BookmarkCount     *int             `json:"bookmarkCount"`
	Photos            []Photo          `json:"photos"`
	Videos            []Video          `json:"videos"`
	Hashtags          []string         `json:"hashtags"`
	Mentions          []Mention        `json:"mentions"`
	URLs              []string         `json:"urls"`
	PermanentURL      string           `json:"permanentUrl"`
	InReplyToStatusID string           `json:"inReplyToStatusId"`
	QuotedStatusID    string           `json:"quotedStatusId"`
	IsPin             bool             `json:"isPin"`
	IsReply           bool             `json:"isReply"`
	IsSelfThread      bool             `json:"isSelfThread"`
	SensitiveContent  bool             `json:"sensitiveContent"`
	Poll              json.RawMessage  `json:"poll"`
	Place             json.RawMessage  `json:"place"`

	// Nested GraphQL shape.
	RestID                string          `json:"rest_id"`
	Legacy                *rawLegacy      `json:"legacy"`
	Core                  *rawUserResults `json:"core"`
	UserResults           *rawUserResult  `json:"user_results"`
	Views                 json.RawMessage `json:"views"`
	QuotedStatusResult    rawNestedResult `json:"quoted_status_result"`
	RetweetedStatusResult rawNestedResult `json:"retweeted_status_result"`
}

type rawNestedResult struct {
	Result json.RawMessage `json:"result"`
}

type rawLegacy struct {
	FullText          string      `json:"full_text"`
	CreatedAt         string      `json:"created_at"`
	ConversationID    string      `json:"conversation_id_str"`
	UserIDStr         string      `json:"user_id_str"`
	Lang              string      `json:"lang"`
	FavoriteCount     *int        `json:"favorite_count"`
	ReplyCount        *int        `json:"reply_count"`
	RetweetCount      *int        `json:"retweet_count"`
	QuoteCount        *int        `json:"quote_count"`
	BookmarkCount     *int        `json:"bookmark_count"`
	InReplyToStatusID string      `json:"in_reply_to_status_id_str"`
	QuotedStatusID    string      `json:"quoted_status_id_str"`
	RetweetedStatusID string      `json:"retweeted_status_id_str"`
	IsQuoteStatus     bool        `json:"is_quote_status"`
	Retweeted         bool        `json:"retweeted"`
	Entities          rawEntities `json:"entities"`
}

type rawEntities struct {
	Hashtags []struct {
		Text string `json:"text"`
	} `json:"hashtags"`
	Media []rawMedia `json:"media"`
	URLs  []struct {
		ExpandedURL string `json:"expanded_url"`
	} `json:"urls"`
	UserMentions []struct {
		IDStr      string `json:"id_str"`
		ScreenName string `json:"screen_name"`
		Name       string `json:"name"`
	} `json:"user_mentions"`
}

type rawMedia struct {
	IDStr         string `json:"id_str"`
	MediaURLHTTPS string `json:"media_url_https"`
	Type          string `json:"type"`
	AltText       string `json:"alt_text"`
}

type rawUserResults struct {
	UserResults rawUserResult `json:"user_results"`
}

type rawUserResult struct {
	Result struct {
		Legacy rawUserLegacy `json:"legacy"`
	} `json:"result"`
}

type rawUserLegacy struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}

var emptyLegacy rawLegacy

// legacy returns the nested legacy block, or an empty one so field
// resolution can read through it without nil checks.
func (r *rawPost) legacy() *rawLegacy {
	if r.Legacy != nil {
		return r.Legacy
	}
	return &emptyLegacy
}

// coreUser returns the user legacy block under core.user_results.result.
func (r *rawPost) coreUser() rawUserLegacy {
	if r.Core != nil {
		return r.Core.UserResults.Result.Legacy
	}
	return rawUserLegacy{}
}

// directUser returns the user legacy block under user_results.result.
func (r *rawPost) directUser() rawUserLegacy {
	if r.UserResults != nil {
		return r.UserResults.Result.Legacy
	}
	return rawUserLegacy{}
}

// Normalize converts one raw platform record into a flat ordered sequence
// of canonical posts: index 0 is the record itself, followed by any quoted
// and retweeted substructures discovered by traversal, each normalized in
// discovery order. It is a pure function of its input; missing fields
// resolve to zero values, never an error. Only an undecodable root record
// is an error.
func Normalize(raw json.RawMessage) ([]*CanonicalPost, error) {
	var root rawPost
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("normalize: decode raw record: %w", err)
	}

	type link struct {
		parent, child int
		quote         bool
	}

	flattened := []*rawPost{&root}
	queue := []int{0}
	var links []link

	for iter := 0; iter < maxTraversalIterations && len(queue) > 0; iter++ {
		idx := queue[0]
		queue = queue[1:]
		cur := flattened[idx]

		for _, nested := range []struct {
			body  json.RawMessage
			quote bool
		}{
			{cur.QuotedStatusResult.Result, true},
			{cur.RetweetedStatusResult.Result, false},
		} {
			if len(nested.body) == 0 || string(nested.body) == "null" {
				continue
			}
			child := new(rawPost)
			if err := json.Unmarshal(nested.body, child); err != nil {
				slog.Debug("skip undecodable nested result", slog.Any("error", err))
				continue
			}
			flattened = append(flattened, child)
			links = append(links, link{parent: idx, child: len(flattened) - 1, quote: nested.quote})
			queue = append(queue, len(flattened)-1)
		}
	}

	posts := make([]*CanonicalPost, len(flattened))
	for i, r := range flattened {
		posts[i] = canonicalize(r)
	}
	for _, l := range links {
		if l.quote {
			posts[l.parent].QuotedStatus = posts[l.child]
		} else {
			posts[l.parent].RetweetedStatus = posts[l.child]
		}
	}
	return posts, nil
}

// canonicalize resolves every canonical field through its ordered fallback
// chain: flat field first, then the nested-legacy equivalent, then a
// computed default.
func canonicalize(r *rawPost) *CanonicalPost {
	lg := r.legacy()
	core := r.coreUser()
	direct := r.directUser()

	p := &CanonicalPost{
		ID:                firstString(r.ID, r.RestID, r.IDStr),
		ConversationID:    firstString(r.ConversationID, lg.ConversationID),
		Name:              firstString(r.Name, direct.Name, core.Name),
		Username:          firstString(r.Username, core.ScreenName, direct.ScreenName),
		UserID:            firstString(r.UserID, lg.UserIDStr),
		Text:              firstString(r.Text, lg.FullText),
		HTML:              r.HTML,
		Language:          lg.Lang,
		Likes:             counter(r.Likes, lg.FavoriteCount),
		Replies:           counter(r.Replies, lg.ReplyCount),
		Retweets:          counter(r.Retweets, lg.RetweetCount),
		Quotes:            counter(r.Quotes, lg.QuoteCount),
		BookmarkCount:     firstIntPtr(r.BookmarkCount, lg.BookmarkCount),
		Views:             parseViews(r.Views),
		PermanentURL:      r.PermanentURL,
		InReplyToStatusID: firstString(r.InReplyToStatusID, lg.InReplyToStatusID),
		QuotedStatusID:    firstString(r.QuotedStatusID, lg.QuotedStatusID),
		RetweetedStatusID: lg.RetweetedStatusID,
		IsQuoted:          lg.IsQuoteStatus,
		IsPin:             r.IsPin,
		IsReply:           r.IsReply,
		IsRetweet:         lg.Retweeted,
		IsSelfThread:      r.IsSelfThread,
		SensitiveContent:  r.SensitiveContent,
		Poll:              r.Poll,
		Place:             r.Place,
	}

	// Permanent link only when both username and id are resolvable;
	// never guessed.
	if p.PermanentURL == "" && p.Username != "" && p.ID != "" {
		p.PermanentURL = fmt.Sprintf("https://x.com/%s/status/%s", p.Username, p.ID)
	}

	if t := parseTime(r.TimeParsed, time.RFC3339); t != nil {
		p.TimeParsed = t
	} else if t := parseTime(lg.CreatedAt, createdAtLayout); t != nil {
		p.TimeParsed = t
	}

	if r.Timestamp != nil {
		ts := int64(*r.Timestamp)
		p.Timestamp = &ts
	} else if t := parseTime(lg.CreatedAt, createdAtLayout); t != nil {
		ts := t.Unix()
		p.Timestamp = &ts
	}

	if r.Photos != nil {
		p.Photos = r.Photos
	} else {
		p.Photos = photosFromMedia(lg.Entities.Media)
	}
	if r.Videos != nil {
		p.Videos = r.Videos
	} else {
		p.Videos = videosFromMedia(lg.Entities.Media)
	}

	if r.Hashtags != nil {
		p.Hashtags = r.Hashtags
	} else {
		p.Hashtags = make([]string, 0, len(lg.Entities.Hashtags))
		for _, h := range lg.Entities.Hashtags {
			p.Hashtags = append(p.Hashtags, h.Text)
		}
	}

	if r.Mentions != nil {
		p.Mentions = r.Mentions
	} else {
		p.Mentions = make([]Mention, 0, len(lg.Entities.UserMentions))
		for _, m := range lg.Entities.UserMentions {
			p.Mentions = append(p.Mentions, Mention{ID: m.IDStr, Username: m.ScreenName, Name: m.Name})
		}
	}

	if r.URLs != nil {
		p.URLs = r.URLs
	} else {
		p.URLs = make([]string, 0, len(lg.Entities.URLs))
		for _, u := range lg.Entities.URLs {
			p.URLs = append(p.URLs, u.ExpandedURL)
		}
	}

	return p
}

// firstString returns the first non-empty candidate.
func firstString(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// counter returns the first present candidate, defaulting to 0. Absence of
// all engagement sources means "no engagement", not "unknown".
func counter(candidates ...*int) int {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return 0
}

// firstIntPtr returns the first present candidate, or nil.
func firstIntPtr(candidates ...*int) *int {
	for _, c := range candidates {
		if c != nil {
			v := *c
			return &v
		}
	}
	return nil
}

// parseViews coerces the views field, which appears both as a bare number
// (flat shape) and as {"count": "1234"} (nested shape). Defaults to 0.
func parseViews(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return n
	}
	var obj struct {
		Count string `json:"count"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Count != "" {
		if v, err := strconv.Atoi(obj.Count); err == nil {
			return v
		}
	}
	return 0
}

func parseTime(s, layout string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	return &t
}

func photosFromMedia(media []rawMedia) []Photo {
	photos := make([]Photo, 0, len(media))
	for _, m := range media {
		if m.Type != "photo" {
			continue
		}
		photos = append(photos, Photo{ID: m.IDStr, URL: m.MediaURLHTTPS, AltText: m.AltText})
	}
	return photos
}

func videosFromMedia(media []rawMedia) []Video {
	videos := make([]Video, 0, len(media))
	for _, m := range media {
		if m.Type != "video" {
			continue
		}
		videos = append(videos, Video{ID: m.IDStr, Preview: m.MediaURLHTTPS})
	}
	return videos
}
