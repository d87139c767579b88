package ports

import (
	"context"

	"github.com/cyberauditpro/cyberaudit/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event core.AuthEvent, userID string, method string) error
	PublishLeadCreated(ctx context.Context, lead *core.Lead) error
}
