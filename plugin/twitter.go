// Package plugin contains the integrations the agent runtime loads. The
// Twitter plugin wires the session manager, the posting gateway, the
// personality, and the post memory into the runtime's executor and
// trigger machinery.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finchbot/finch/agent"
	"github.com/finchbot/finch/memory"
	"github.com/finchbot/finch/personality"
	"github.com/finchbot/finch/twitter"
)

const (
	// DefaultTweetInterval is how often the timer trigger fires when no
	// interval is configured.
	DefaultTweetInterval = 60 * time.Second

	// defaultRecentHistory is how many past posts feed the prompt.
	defaultRecentHistory = 10

	// tweetTemperature is the sampling temperature for tweet generation.
	tweetTemperature = 0.45

	pluginID = "plugin-twitter"
)

// Twitter is the agent plugin that composes and publishes tweets.
type Twitter struct {
	session *twitter.Session
	poster  *twitter.Poster
	persona *personality.Personality
	store   *memory.Store
	log     *slog.Logger

	interval time.Duration
	history  int
}

// TwitterOption configures the Twitter plugin.
type TwitterOption func(*Twitter)

// WithTweetInterval sets how often the timer trigger fires.
func WithTweetInterval(d time.Duration) TwitterOption {
	return func(p *Twitter) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the plugin logger.
func WithLogger(log *slog.Logger) TwitterOption {
	return func(p *Twitter) { p.log = log }
}

// NewTwitter builds the plugin and kicks off session initialization in
// the background. Login failures are logged; the triggers still run and
// every post attempt against a dead session is swallowed downstream.
func NewTwitter(session *twitter.Session, poster *twitter.Poster, persona *personality.Personality, store *memory.Store, opts ...TwitterOption) *Twitter {
	p := &Twitter{
		session:  session,
		poster:   poster,
		persona:  persona,
		store:    store,
		log:      slog.Default(),
		interval: DefaultTweetInterval,
		history:  defaultRecentHistory,
	}
	for _, opt := range opts {
		opt(p)
	}

	go func() {
		if err := p.session.Init(context.Background()); err != nil {
			p.log.Error("twitter session initialization failed", slog.Any("error", err))
		}
	}()

	return p
}

// ID implements agent.Plugin.
func (p *Twitter) ID() string { return pluginID }

// Executors implements agent.Plugin.
func (p *Twitter) Executors() []agent.Executor {
	return []agent.Executor{{
		Name:        "send_tweet",
		Description: "Compose a tweet in character and publish it",
		Execute:     p.sendTweet,
	}}
}

// Triggers implements agent.Plugin.
func (p *Twitter) Triggers() []agent.Trigger {
	return []agent.Trigger{
		{ID: "tweet_timer", Start: p.runTimer},
		{ID: "tweet_event_listened", Start: p.runListener},
	}
}

// sendTweet renders the personality prompt over recent history, asks
// the model for a tweet, and hands it to the platform response handler.
func (p *Twitter) sendTweet(ctx context.Context, rt *agent.Runtime, ev *agent.Event) agent.Result {
	if ev.Platform == nil || ev.Platform.ResponseHandler == nil {
		return agent.Result{Success: false, Error: "no response handler available"}
	}

	recent, err := p.store.Recent(ctx, p.history)
	if err != nil {
		// History is an enhancement, not a requirement.
		p.log.Warn("failed to load recent posts", slog.Any("error", err))
	}
	texts := make([]string, 0, len(recent))
	for _, post := range recent {
		texts = append(texts, post.Text)
	}

	prompt, err := p.persona.TweetPrompt(texts)
	if err != nil {
		return agent.Result{Success: false, Error: err.Error()}
	}

	var out struct {
		Tweet string `json:"tweet"`
	}
	if err := rt.GetObject(ctx, &out, prompt, tweetTemperature); err != nil {
		return agent.Result{Success: false, Error: fmt.Sprintf("compose tweet: %v", err)}
	}
	out.Tweet = strings.TrimSpace(out.Tweet)
	if out.Tweet == "" {
		return agent.Result{Success: false, Error: "model returned an empty tweet"}
	}

	if err := ev.Platform.ResponseHandler(out.Tweet); err != nil {
		return agent.Result{Success: false, Error: fmt.Sprintf("deliver tweet: %v", err)}
	}
	return agent.Result{Success: true, Message: out.Tweet}
}

// runTimer emits a tweet event on a fixed interval until cancelled.
func (p *Twitter) runTimer(ctx context.Context, rt *agent.Runtime) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.EmitTweet()
		}
	}
}

// runListener consumes tweet events and turns each into a runtime event
// whose response handler publishes through the posting gateway.
func (p *Twitter) runListener(ctx context.Context, rt *agent.Runtime) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rt.TweetEvents():
			p.log.Info("tweet event received")

			initial := agent.NewUserInput(pluginID, "It is time to post a new tweet.")
			platform := &agent.PlatformContext{
				Platform:        "twitter",
				ResponseHandler: p.responseHandler(ctx),
			}
			if err := rt.CreateEvent(ctx, initial, platform); err != nil {
				p.log.Error("tweet event failed", slog.Any("error", err))
			}
		}
	}
}

// responseHandler publishes the composed tweet and records confirmed
// deliveries in memory.
func (p *Twitter) responseHandler(ctx context.Context) func(string) error {
	return func(response string) error {
		tweetID := p.poster.Post(ctx, response)
		if tweetID == "" {
			// Delivery failures are logged by the gateway and must not
			// halt the trigger loop.
			return nil
		}
		if err := p.store.Record(ctx, tweetID, response); err != nil {
			p.log.Warn("failed to record post", slog.String("tweet_id", tweetID), slog.Any("error", err))
		}
		return nil
	}
}
