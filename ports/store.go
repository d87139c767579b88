package ports

import (
	"context"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
)

// Store interface for token invalidation
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// LeadStore persists contact form submissions
type LeadStore interface {
	// Insert stores a new lead
	Insert(ctx context.Context, lead *core.Lead) error

	// List returns every lead, newest first
	List(ctx context.Context) ([]*core.Lead, error)

	// Get returns one lead or core.ErrLeadNotFound
	Get(ctx context.Context, id string) (*core.Lead, error)

	// MarkRead sets the read flag of a lead
	MarkRead(ctx context.Context, id string) error

	// Delete removes a lead
	Delete(ctx context.Context, id string) error
}

// SessionPersister keeps the current client session across process restarts
type SessionPersister interface {
	Load() (*core.Session, error)
	Save(session *core.Session) error
	Clear() error
}
