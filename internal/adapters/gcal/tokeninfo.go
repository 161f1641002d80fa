package gcal

import (
	"context"
	"net/http"
	"strings"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/okian/calmate/internal/domain/apperr"
)

// ScopeChecker reports whether an access token was granted a scope.
type ScopeChecker interface {
	HasScope(ctx context.Context, accessToken, scope string) (bool, error)
}

// TokenInfo checks scopes with Google's tokeninfo endpoint.
type TokenInfo struct {
	client   *http.Client
	endpoint string
}

// NewTokenInfo builds a TokenInfo. endpoint may be empty for the default.
func NewTokenInfo(client *http.Client, endpoint string) *TokenInfo {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenInfo{client: client, endpoint: endpoint}
}

// HasScope implements ScopeChecker. A token the provider rejects has no
// scopes.
func (t *TokenInfo) HasScope(ctx context.Context, accessToken, scope string) (bool, error) {
	const op = "gcal.token_info"
	opts := []option.ClientOption{option.WithHTTPClient(t.client)}
	if t.endpoint != "" {
		opts = append(opts, option.WithEndpoint(t.endpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return false, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	info, err := svc.Tokeninfo().AccessToken(accessToken).Context(ctx).Do()
	if err != nil {
		if code := statusOf(err); code == http.StatusBadRequest || code == http.StatusUnauthorized {
			return false, nil
		}
		return false, apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
	}
	for _, s := range strings.Fields(info.Scope) {
		if s == scope {
			return true, nil
		}
	}
	return false, nil
}
