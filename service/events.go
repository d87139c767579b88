package service

import (
	"context"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"go.uber.org/zap"
)

type nopPublisher struct{}

func (nopPublisher) PublishAuthEvent(ctx context.Context, event core.AuthEvent, userID string, method string) error {
	return nil
}

func (nopPublisher) PublishLeadCreated(ctx context.Context, lead *core.Lead) error {
	return nil
}

func publisherOrNop(pub ports.EventPublisher) ports.EventPublisher {
	if pub == nil {
		return nopPublisher{}
	}
	return pub
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
