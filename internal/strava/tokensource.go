package strava

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

var ErrNoToken = errors.New("no strava token")

// refreshBuffer refreshes tokens slightly before Strava expires them
const refreshBuffer = 60 * time.Second

// TokenSource refreshes tokens as needed and hands every new token to onRefresh
// so it can be stored before it is used.
type TokenSource struct {
	ctx       context.Context
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(context.Context, *oauth2.Token) error
	mu        sync.Mutex
}

func NewTokenSource(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, onRefresh func(context.Context, *oauth2.Token) error) *TokenSource {
	return &TokenSource{
		ctx:       ctx,
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token == nil {
		return nil, ErrNoToken
	}
	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	// an expired copy forces the oauth2 source to refresh
	stale := *ts.token
	stale.Expiry = time.Now().Add(-time.Minute)
	newToken, err := ts.config.TokenSource(ts.ctx, &stale).Token()
	if err != nil {
		return nil, err
	}
	if newToken.RefreshToken == "" {
		newToken.RefreshToken = ts.token.RefreshToken
	}

	if ts.onRefresh != nil {
		if err := ts.onRefresh(ts.ctx, newToken); err != nil {
			return nil, err
		}
	}

	ts.token = newToken
	return newToken, nil
}

// CurrentToken returns the current token without refreshing
func (ts *TokenSource) CurrentToken() *oauth2.Token {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.token
}
