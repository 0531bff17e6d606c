package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedResponse() *SendResponse {
	var resp SendResponse
	body := `{"data": {"create_tweet": {"tweet_results": {"result": {"rest_id": "123"}}}}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		panic(err)
	}
	return &resp
}

func newTestPoster(client *fakeClient) *Poster {
	s := newTestSession(client)
	s.state = StateAuthenticated
	return NewPoster(s, nil)
}

func TestPostRejectsOverlongContent(t *testing.T) {
	client := &fakeClient{sendResp: confirmedResponse()}
	p := newTestPoster(client)

	p.Post(context.Background(), strings.Repeat("x", 281))
	assert.Empty(t, client.sentTexts, "overlong content must never reach the send capability")
}

func TestPostAppendsSuffixWhenItFits(t *testing.T) {
	client := &fakeClient{sendResp: confirmedResponse()}
	p := newTestPoster(client)

	content := strings.Repeat("x", 260)
	id := p.Post(context.Background(), content)

	assert.Equal(t, "123", id)
	require.Len(t, client.sentTexts, 1)
	// 260 + 1 + 19 = exactly 280.
	assert.Equal(t, content+"\n"+AttributionSuffix, client.sentTexts[0])
	assert.Len(t, client.sentTexts[0], MaxTweetLength)
}

func TestPostSkipsSuffixWhenTight(t *testing.T) {
	client := &fakeClient{sendResp: confirmedResponse()}
	p := newTestPoster(client)

	content := strings.Repeat("x", 262)
	p.Post(context.Background(), content)

	require.Len(t, client.sentTexts, 1)
	assert.Equal(t, content, client.sentTexts[0])
}

func TestPostSwallowsBadEnvelope(t *testing.T) {
	client := &fakeClient{sendResp: &SendResponse{}}
	p := newTestPoster(client)

	id := p.Post(context.Background(), "hello")
	assert.Empty(t, id)
	assert.Len(t, client.sentTexts, 1, "delivery is attempted once; the bad envelope is only logged")
}

func TestPostSwallowsTransportError(t *testing.T) {
	client := &fakeClient{sendErr: errors.New("connection reset")}
	p := newTestPoster(client)

	assert.NotPanics(t, func() {
		p.Post(context.Background(), "hello")
	})
}

func TestPostSwallowsUnauthenticatedSession(t *testing.T) {
	client := &fakeClient{}
	s := newTestSession(client)
	p := NewPoster(s, nil)

	p.Post(context.Background(), "hello")
	assert.Empty(t, client.sentTexts)
}

func TestSendResponseConfirmed(t *testing.T) {
	assert.True(t, confirmedResponse().Confirmed())
	assert.False(t, (&SendResponse{}).Confirmed())
	assert.False(t, (*SendResponse)(nil).Confirmed())

	var nullResult SendResponse
	require.NoError(t, json.Unmarshal([]byte(`{"data": {"create_tweet": {"tweet_results": {"result": null}}}}`), &nullResult))
	assert.False(t, nullResult.Confirmed())
}

func TestSendResponseTweetID(t *testing.T) {
	assert.Equal(t, "123", confirmedResponse().TweetID())
	assert.Empty(t, (&SendResponse{}).TweetID())
	assert.Empty(t, (*SendResponse)(nil).TweetID())
}
