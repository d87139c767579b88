package ports

import (
	"context"

	"github.com/cyberauditpro/cyberaudit/core"
)

// IdentityBackend is the hosted authentication service
type IdentityBackend interface {
	// SignUp registers a new email/password identity
	SignUp(ctx context.Context, email, password string, opts core.SignUpOptions) (*core.SignUpResult, error)

	// SignInWithPassword exchanges a credential for a session
	SignInWithPassword(ctx context.Context, email, password string) (*core.Session, error)

	// RefreshSession rotates the tokens of a session
	RefreshSession(ctx context.Context, refreshToken string) (*core.Session, error)

	// SignOut revokes the session owning accessToken
	SignOut(ctx context.Context, accessToken string) error

	// GetUser returns the identity behind accessToken
	GetUser(ctx context.Context, accessToken string) (*core.User, error)
}

// ConfigBackend serves named remote configuration
type ConfigBackend interface {
	// FetchConfig decodes the configuration called name into out
	FetchConfig(ctx context.Context, name string, out any) error
}
