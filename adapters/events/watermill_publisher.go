package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
)

const (
	// AuthTopic carries sign-in, sign-up and sign-out notifications
	AuthTopic = "cyberaudit.auth"

	// LeadTopic carries new contact form submissions
	LeadTopic = "cyberaudit.leads"
)

// AuthEventMessage is the payload published on AuthTopic
type AuthEventMessage struct {
	Event  core.AuthEvent `json:"event"`
	UserID string         `json:"user_id"`
	Method string         `json:"method"`
	At     time.Time      `json:"at"`
}

// LeadCreatedMessage is the payload published on LeadTopic
type LeadCreatedMessage struct {
	LeadID    string    `json:"lead_id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	authTopic string
	leadTopic string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		authTopic: AuthTopic,
		leadTopic: LeadTopic,
	}
}

// PublishAuthEvent publishes an authentication state change
func (p *WatermillPublisher) PublishAuthEvent(ctx context.Context, event core.AuthEvent, userID string, method string) error {
	return p.publish(ctx, p.authTopic, AuthEventMessage{
		Event:  event,
		UserID: userID,
		Method: method,
		At:     time.Now().UTC(),
	})
}

// PublishLeadCreated publishes a new lead
func (p *WatermillPublisher) PublishLeadCreated(ctx context.Context, lead *core.Lead) error {
	return p.publish(ctx, p.leadTopic, LeadCreatedMessage{
		LeadID:    lead.ID,
		Name:      lead.Name,
		Company:   lead.Company,
		Email:     lead.Email,
		CreatedAt: lead.CreatedAt,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
