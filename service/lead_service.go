package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LeadService handles contact form submissions and their administration
type LeadService struct {
	store    ports.LeadStore
	eventPub ports.EventPublisher
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewLeadService creates a new lead service
func NewLeadService(store ports.LeadStore, eventPub ports.EventPublisher, metrics *Metrics, logger *zap.Logger) *LeadService {
	return &LeadService{
		store:    store,
		eventPub: publisherOrNop(eventPub),
		metrics:  metrics,
		logger:   loggerOrNop(logger),
		now:      time.Now,
	}
}

// Submit validates and stores a contact form submission
func (s *LeadService) Submit(ctx context.Context, in core.LeadInput) (*core.Lead, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		s.metrics.leadSubmitted(OutcomeInvalid)
		return nil, err
	}

	lead := &core.Lead{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Company:   in.Company,
		Email:     in.Email,
		Phone:     in.Phone,
		Comment:   in.Comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, lead); err != nil {
		s.metrics.leadSubmitted(OutcomeError)
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}
	s.metrics.leadSubmitted(OutcomeAccepted)

	s.logger.Info("lead submitted", zap.String("lead_id", lead.ID))
	if err := s.eventPub.PublishLeadCreated(ctx, lead); err != nil {
		s.logger.Warn("failed to publish lead event", zap.String("lead_id", lead.ID), zap.Error(err))
	}
	return lead, nil
}

// List returns every lead, newest first
func (s *LeadService) List(ctx context.Context) ([]*core.Lead, error) {
	return s.store.List(ctx)
}

// Get returns one lead
func (s *LeadService) Get(ctx context.Context, id string) (*core.Lead, error) {
	return s.store.Get(ctx, id)
}

// MarkRead flags a lead as read
func (s *LeadService) MarkRead(ctx context.Context, id string) error {
	if err := s.store.MarkRead(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("lead marked read", zap.String("lead_id", id))
	return nil
}

// Delete removes a lead
func (s *LeadService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("lead deleted", zap.String("lead_id", id))
	return nil
}

// Stats counts read and unread leads
func (s *LeadService) Stats(ctx context.Context) (core.LeadStats, error) {
	leads, err := s.store.List(ctx)
	if err != nil {
		return core.LeadStats{}, err
	}

	stats := core.LeadStats{Total: len(leads)}
	for _, lead := range leads {
		if lead.Read {
			stats.Read++
		} else {
			stats.Unread++
		}
	}
	return stats, nil
}
