package twitter

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

// MaxTweetLength is the platform's character limit for one post.
const MaxTweetLength = 280

// AttributionSuffix is appended to outgoing posts when it fits within the
// limit after the primary content.
const AttributionSuffix = "Tweeted using $FNCH"

// Poster validates and delivers outgoing posts. Delivery is fire and
// forget from the caller's perspective: every failure is logged and
// swallowed here so a single bad post never interrupts the trigger loop.
type Poster struct {
	session *Session
	log     *slog.Logger
	suffix  string
}

// NewPoster creates a posting gateway over an authenticated session.
func NewPoster(session *Session, log *slog.Logger) *Poster {
	if log == nil {
		log = slog.Default()
	}
	return &Poster{session: session, log: log, suffix: AttributionSuffix}
}

// Post validates, augments, and delivers one text payload. Content over
// the platform limit is dropped with a log line; the attribution suffix is
// appended only when content + newline + suffix still fits the limit.
// Returns the created tweet's ID on confirmed delivery, "" otherwise.
func (p *Poster) Post(ctx context.Context, text string) string {
	p.log.Info("sending tweet", slog.Int("length", utf8.RuneCountInString(text)))

	if utf8.RuneCountInString(text) > MaxTweetLength {
		p.log.Error("tweet too long, dropping", slog.Int("length", utf8.RuneCountInString(text)))
		return ""
	}

	if utf8.RuneCountInString(text)+1+utf8.RuneCountInString(p.suffix) <= MaxTweetLength {
		text += "\n" + p.suffix
	}

	resp, err := p.session.SendTweet(ctx, text)
	if err != nil {
		p.log.Error("failed to send tweet", slog.Any("error", err))
		return ""
	}
	if !resp.Confirmed() {
		msg := "missing tweet result"
		if len(resp.Errors) > 0 {
			msg = resp.Errors[0].Message
		}
		p.log.Error("bad send response", slog.String("reason", msg))
		return ""
	}
	p.log.Info("tweet sent", slog.String("tweet_id", resp.TweetID()))
	return resp.TweetID()
}
