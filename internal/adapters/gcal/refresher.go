package gcal

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (model.RefreshedToken, error)
}

// OAuthConfig returns the Google OAuth client config for calendar access.
// A non-empty tokenURL replaces Google's token endpoint.
func OAuthConfig(clientID, clientSecret, redirectURL, tokenURL string) *oauth2.Config {
	ep := google.Endpoint
	if tokenURL != "" {
		ep.TokenURL = tokenURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     ep,
	}
}

// OAuthRefresher refreshes tokens against an OAuth2 token endpoint.
type OAuthRefresher struct {
	cfg    *oauth2.Config
	client *http.Client
}

// NewRefresher builds a refresher for cfg. client may be nil.
func NewRefresher(cfg *oauth2.Config, client *http.Client) *OAuthRefresher {
	return &OAuthRefresher{cfg: cfg, client: client}
}

// Refresh implements Refresher. Failures are TokenExpired.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (model.RefreshedToken, error) {
	const op = "gcal.refresh"
	if refreshToken == "" {
		return model.RefreshedToken{}, apperr.New(op, apperr.ErrTokenExpired, "no refresh token")
	}
	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}
	tok, err := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return model.RefreshedToken{}, apperr.Wrap(op, apperr.ErrTokenExpired, err)
	}
	out := model.RefreshedToken{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		out.RefreshToken = tok.RefreshToken
	}
	return out, nil
}
