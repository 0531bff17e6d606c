package twitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Retry policy for the login loop. Named so tests can inject shorter
// delays through WithRetryPolicy.
const (
	DefaultLoginAttempts = 5
	DefaultLoginDelay    = 2 * time.Second
)

// State is the session's authentication state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Credentials are write-once at session construction.
type Credentials struct {
	Username string
	Password string
	Email    string
}

// Session owns one authenticated connection to the platform. State is
// safe for concurrent readers while Init runs in the background, but it
// is built for a single initialization path: concurrent Init calls may
// race through the liveness check, which is accepted rather than
// defended against.
type Session struct {
	client      Client
	creds       Credentials
	log         *slog.Logger
	maxAttempts int
	retryDelay  time.Duration

	mu      sync.RWMutex
	state   State
	profile *Profile
	cookies []string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithRetryPolicy overrides the login attempt cap and inter-attempt delay.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(s *Session) {
		s.maxAttempts = attempts
		s.retryDelay = delay
	}
}

// NewSession creates an unauthenticated session around a transport client.
func NewSession(client Client, creds Credentials, opts ...Option) *Session {
	s := &Session{
		client:      client,
		creds:       creds,
		log:         slog.Default(),
		maxAttempts: DefaultLoginAttempts,
		retryDelay:  DefaultLoginDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Profile returns the cached profile, nil before a successful Init.
func (s *Session) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Init establishes the authenticated session. If the client already holds
// a live login it skips straight to the profile fetch; otherwise it runs
// the bounded retry loop. Exhausting all attempts returns *AuthError and
// leaves the session in StateFailed, from which Init may be re-invoked.
func (s *Session) Init(ctx context.Context) error {
	if ok, err := s.client.IsLoggedIn(ctx); err == nil && ok {
		s.log.Info("already logged in", slog.String("user", s.creds.Username))
		s.setState(StateAuthenticated)
		return s.fetchProfile(ctx)
	}

	s.setState(StateAuthenticating)
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				s.setState(StateFailed)
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		// Re-check liveness each attempt: another path may have logged
		// in since the last one.
		if ok, err := s.client.IsLoggedIn(ctx); err == nil && ok {
			s.log.Info("already logged in", slog.String("user", s.creds.Username))
			s.setState(StateAuthenticated)
			break
		}

		s.log.Info("logging in", slog.String("user", s.creds.Username), slog.Int("attempt", attempt))
		if err := s.client.Login(ctx, s.creds.Username, s.creds.Password, s.creds.Email); err != nil {
			s.log.Warn("login failed", slog.String("user", s.creds.Username), slog.Int("attempt", attempt), slog.Any("error", err))
			lastErr = err
			continue
		}

		if ok, err := s.client.IsLoggedIn(ctx); err == nil && ok {
			s.log.Info("login successful", slog.String("user", s.creds.Username))
			s.mu.Lock()
			s.cookies = s.client.GetCookies()
			s.state = StateAuthenticated
			s.mu.Unlock()
			break
		}
		lastErr = fmt.Errorf("login completed but session is not live")
	}

	if s.State() != StateAuthenticated {
		s.setState(StateFailed)
		return &AuthError{Platform: "twitter", Attempts: s.maxAttempts, Err: lastErr}
	}
	return s.fetchProfile(ctx)
}

// fetchProfile fetches and caches the configured user's profile. Failures
// are not retried; they propagate as-is.
func (s *Session) fetchProfile(ctx context.Context) error {
	profile, err := s.client.GetProfile(ctx, s.creds.Username)
	if err != nil {
		return fmt.Errorf("fetch profile %s: %w", s.creds.Username, err)
	}
	s.log.Info("fetched profile",
		slog.String("user", profile.Username),
		slog.Int("followers", profile.FollowersCount))
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	return nil
}

// Cookies returns the session cookie blob captured at login.
func (s *Session) Cookies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookies
}

// FetchTimeline fetches count raw timeline records and normalizes each
// one, concatenating the per-record output sequences in input order.
func (s *Session) FetchTimeline(ctx context.Context, count int) ([]*CanonicalPost, error) {
	if s.State() != StateAuthenticated {
		return nil, &ErrNotAuthenticated{Op: "fetch timeline"}
	}
	items, err := s.client.FetchTimeline(ctx, count, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}

	var posts []*CanonicalPost
	for _, item := range items {
		batch, err := Normalize(item)
		if err != nil {
			s.log.Debug("skip unnormalizable record", slog.Any("error", err))
			continue
		}
		posts = append(posts, batch...)
	}
	return posts, nil
}

// SendTweet delegates to the transport client after an authentication
// check. The posting gateway, not callers, interprets the envelope.
func (s *Session) SendTweet(ctx context.Context, text string) (*SendResponse, error) {
	if s.State() != StateAuthenticated {
		return nil, &ErrNotAuthenticated{Op: "send tweet"}
	}
	return s.client.SendTweet(ctx, text)
}
