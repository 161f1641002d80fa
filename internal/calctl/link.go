package calctl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/okian/calmate/internal/domain/model"
)

// Accounts stores a linked credential and opens a session for it.
type Accounts interface {
	Link(ctx context.Context, cred model.Credential) (model.Session, error)
}

// Linker runs the OAuth authorization code flow for a user.
type Linker struct {
	oauth    *oauth2.Config
	accounts Accounts
	client   *http.Client
}

// NewLinker creates a linker. client may be nil for the default.
func NewLinker(cfg *oauth2.Config, accounts Accounts, client *http.Client) *Linker {
	return &Linker{oauth: cfg, accounts: accounts, client: client}
}

// AuthURL returns the consent page URL. Offline access with forced consent
// makes Google return a refresh token on every link.
func (l *Linker) AuthURL(state string) string {
	return l.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Complete exchanges the pasted code for tokens and links them to userID.
// input may be the bare code or the whole redirect URL, whose state must
// match.
func (l *Linker) Complete(ctx context.Context, userID, state, input string) (model.Session, error) {
	code, err := ParseCode(input, state)
	if err != nil {
		return model.Session{}, err
	}
	if l.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, l.client)
	}
	tok, err := l.oauth.Exchange(ctx, code)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return model.Session{}, ErrNoRefresh
	}
	scope, _ := tok.Extra("scope").(string)
	return l.accounts.Link(ctx, model.Credential{
		UserID:       userID,
		ProviderID:   model.GoogleProvider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		Scope:        scope,
	})
}

// ParseCode extracts the authorization code from a bare code or a redirect URL.
func ParseCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNoCode
	}
	if !strings.Contains(input, "code=") && !strings.Contains(input, "error=") {
		return input, nil
	}
	raw := input
	if u, err := url.Parse(input); err == nil && u.RawQuery != "" {
		raw = u.RawQuery
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect: %w", err)
	}
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if got := q.Get("state"); got != "" && got != state {
		return "", ErrStateMismatch
	}
	code := q.Get("code")
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}
