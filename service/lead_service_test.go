package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cyberauditpro/cyberaudit/adapters/store"
	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLead(name string) core.LeadInput {
	return core.LeadInput{
		Name:    name,
		Company: "  ACME  ",
		Email:   "contact@acme.test",
		Comment: "We need a smart contract audit before launch.",
	}
}

func TestLeadServiceLifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewLeadService(store.NewMemoryLeadStore(), pub, metrics, nil)

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	ctx := context.Background()

	first, err := svc.Submit(ctx, validLead("Alice"))
	require.NoError(t, err)
	assert.Equal(t, "ACME", first.Company)
	assert.False(t, first.Read)
	assert.NotEmpty(t, first.ID)

	second, err := svc.Submit(ctx, validLead("Bob"))
	require.NoError(t, err)

	leads, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, second.ID, leads[0].ID)
	assert.Equal(t, first.ID, leads[1].ID)

	require.NoError(t, svc.MarkRead(ctx, first.ID))
	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.LeadStats{Total: 2, Unread: 1, Read: 1}, stats)

	require.NoError(t, svc.Delete(ctx, second.ID))
	_, err = svc.Get(ctx, second.ID)
	assert.ErrorIs(t, err, core.ErrLeadNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, second.ID), core.ErrLeadNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, second.ID), core.ErrLeadNotFound)

	require.Len(t, pub.leads, 2)
	assert.Equal(t, first.ID, pub.leads[0].ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.leadsSubmitted.WithLabelValues(OutcomeAccepted)))
}

func TestLeadServiceRejectsInvalidInput(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewLeadService(store.NewMemoryLeadStore(), nil, metrics, nil)

	in := validLead("A")
	in.Comment = "short"
	in.Phone = strings.Repeat("1", 21)

	_, err := svc.Submit(context.Background(), in)
	assert.ErrorIs(t, err, core.ErrInvalidLead)

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"name": "min=2", "comment": "min=10", "phone": "max=20"}, verr.Fields)

	leads, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.leadsSubmitted.WithLabelValues(OutcomeInvalid)))
}

func TestLeadServicePublishFailureKeepsLead(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("bus down")}
	svc := NewLeadService(store.NewMemoryLeadStore(), pub, nil, nil)

	lead, err := svc.Submit(context.Background(), validLead("Alice"))
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}
