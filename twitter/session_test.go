package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a scriptable transport client for session tests.
type fakeClient struct {
	loggedIn      bool
	loginErrs     []error // consumed per Login call; nil entry means success
	loginCalls    int
	isLoggedInErr error
	profile       *Profile
	profileErr    error
	profileCalls  int
	timeline      []json.RawMessage
	timelineErr   error
	sendResp      *SendResponse
	sendErr       error
	sentTexts     []string
}

func (f *fakeClient) IsLoggedIn(ctx context.Context) (bool, error) {
	return f.loggedIn, f.isLoggedInErr
}

func (f *fakeClient) Login(ctx context.Context, username, password, email string) error {
	f.loginCalls++
	if f.loginCalls <= len(f.loginErrs) {
		if err := f.loginErrs[f.loginCalls-1]; err != nil {
			return err
		}
	}
	f.loggedIn = true
	return nil
}

func (f *fakeClient) GetCookies() []string {
	return []string{"auth_token=abc", "ct0=def"}
}

func (f *fakeClient) GetProfile(ctx context.Context, username string) (*Profile, error) {
	f.profileCalls++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile != nil {
		return f.profile, nil
	}
	return &Profile{Username: username}, nil
}

func (f *fakeClient) FetchTimeline(ctx context.Context, count int, excludeIDs []string) ([]json.RawMessage, error) {
	return f.timeline, f.timelineErr
}

func (f *fakeClient) SendTweet(ctx context.Context, text string) (*SendResponse, error) {
	f.sentTexts = append(f.sentTexts, text)
	return f.sendResp, f.sendErr
}

func newTestSession(client *fakeClient) *Session {
	return NewSession(client, Credentials{Username: "finch", Password: "pw", Email: "finch@example.com"},
		WithRetryPolicy(DefaultLoginAttempts, 0))
}

func TestInitAlreadyLoggedIn(t *testing.T) {
	client := &fakeClient{loggedIn: true}
	s := newTestSession(client)

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, 0, client.loginCalls)
	assert.Equal(t, 1, client.profileCalls)
	require.NotNil(t, s.Profile())
	assert.Equal(t, "finch", s.Profile().Username)
}

func TestInitRetriesThenSucceeds(t *testing.T) {
	boom := errors.New("login boom")
	client := &fakeClient{loginErrs: []error{boom, boom, boom, boom, nil}}
	s := newTestSession(client)

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, 5, client.loginCalls)
	assert.Equal(t, []string{"auth_token=abc", "ct0=def"}, s.Cookies())
	assert.Equal(t, 1, client.profileCalls)
}

func TestInitExhaustsRetries(t *testing.T) {
	boom := errors.New("login boom")
	client := &fakeClient{loginErrs: []error{boom, boom, boom, boom, boom}}
	s := newTestSession(client)

	err := s.Init(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "twitter", authErr.Platform)
	assert.Equal(t, 5, authErr.Attempts)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, 5, client.loginCalls)
	assert.Equal(t, 0, client.profileCalls, "no profile fetch after exhausted retries")
}

func TestInitProfileFailurePropagates(t *testing.T) {
	client := &fakeClient{loggedIn: true, profileErr: errors.New("not found")}
	s := newTestSession(client)

	err := s.Init(context.Background())
	require.Error(t, err)
	assert.NotErrorAs(t, err, new(*AuthError))
	assert.Equal(t, 1, client.profileCalls, "profile fetch is not retried")
}

func TestFetchTimelineNormalizesEachRecord(t *testing.T) {
	client := &fakeClient{
		loggedIn: true,
		timeline: []json.RawMessage{
			[]byte(`{"rest_id": "a", "quoted_status_result": {"result": {"rest_id": "a-quoted"}}}`),
			[]byte(`{"rest_id": "b"}`),
		},
	}
	s := newTestSession(client)
	require.NoError(t, s.Init(context.Background()))

	posts, err := s.FetchTimeline(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "a", posts[0].ID)
	assert.Equal(t, "a-quoted", posts[1].ID)
	assert.Equal(t, "b", posts[2].ID)
}

func TestFetchTimelineRequiresAuthentication(t *testing.T) {
	s := newTestSession(&fakeClient{})

	_, err := s.FetchTimeline(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*ErrNotAuthenticated))
}

func TestSendTweetRequiresAuthentication(t *testing.T) {
	s := newTestSession(&fakeClient{})

	_, err := s.SendTweet(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*ErrNotAuthenticated))
}
