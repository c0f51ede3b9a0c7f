package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scopes required by the dashboard (Strava uses comma-separated scopes).
var Scopes = []string{
	"read,activity:read,activity:read_all",
}

// OAuthConfig builds an oauth2.Config for a client id/secret pair.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
		RedirectURL: redirectURL,
		Scopes:      Scopes,
	}
}

// FromOAuth2 converts an exchange/refresh response into the persisted form.
// Strava embeds the athlete identity in the token extras on first exchange.
func FromOAuth2(t *oauth2.Token) Token {
	tok := Token{
		TokenType:    t.TokenType,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry.Unix(),
	}
	if athlete, ok := t.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			tok.Athlete.ID = int64(id)
		}
	}
	return tok
}

// ToOAuth2 converts a persisted token back into the oauth2 form.
func (t Token) ToOAuth2() *oauth2.Token {
	return &oauth2.Token{
		TokenType:    t.TokenType,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       time.Unix(t.ExpiresAt, 0),
	}
}

// Source is an oauth2.TokenSource backed by the store: it refreshes expired
// tokens through the provider and persists every new token before use, and it
// can be forced to refresh when the API reports the access token invalid.
type Source struct {
	cfg      *oauth2.Config
	store    *Store
	clientID string

	mu      sync.Mutex
	current Token
}

// NewSource creates a refreshing token source for the given client id.
func NewSource(cfg *oauth2.Config, store *Store, clientID string) (*Source, error) {
	cred, err := store.Get(clientID)
	if err != nil {
		return nil, err
	}
	return &Source{cfg: cfg, store: store, clientID: clientID, current: cred.Token}, nil
}

// Token returns a valid token, refreshing and persisting when close to expiry.
func (s *Source) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Expired() {
		return s.current.ToOAuth2(), nil
	}
	return s.refreshLocked(context.Background())
}

// Refresh forces a refresh regardless of the recorded expiry. Used when the
// API reports the access token invalid even though it looks current.
func (s *Source) Refresh(ctx context.Context) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.refreshLocked(ctx); err != nil {
		return Token{}, err
	}
	return s.current, nil
}

// AthleteID returns the athlete identity captured at the initial exchange.
func (s *Source) AthleteID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Athlete.ID
}

func (s *Source) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	stale := s.current.ToOAuth2()
	// Force the oauth2 transport to consider the token expired.
	stale.Expiry = time.Now().Add(-time.Minute)

	fresh, err := s.cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	tok := FromOAuth2(fresh)
	// Refresh responses do not repeat the athlete; carry it forward.
	if tok.Athlete.ID == 0 {
		tok.Athlete = s.current.Athlete
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = s.current.RefreshToken
	}
	if err := s.store.Save(s.clientID, &tok); err != nil {
		return nil, fmt.Errorf("persisting refreshed token: %w", err)
	}
	s.current = tok
	return tok.ToOAuth2(), nil
}
