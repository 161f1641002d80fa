// Package repository persists sessions and linked calendar credentials.
package repository

import (
	"context"

	"github.com/okian/calmate/internal/domain/model"
)

// Store provides read/write access to sessions and credentials.
type Store interface {
	// ResolveSession maps a session token to its user. Unknown or expired
	// tokens fail with an apperr Unauthorized error.
	ResolveSession(ctx context.Context, token string) (model.Session, error)
	// PutSession inserts or replaces a session.
	PutSession(ctx context.Context, s model.Session) error
	// DeleteSession removes a session. Removing an unknown token is not an error.
	DeleteSession(ctx context.Context, token string) error

	// Credential returns the user's Google credential. A user without a
	// linked account fails with an apperr NotFound error.
	Credential(ctx context.Context, userID string) (model.Credential, error)
	// SaveCredential inserts or replaces the credential for its user and provider.
	SaveCredential(ctx context.Context, c model.Credential) error

	Close() error
}
