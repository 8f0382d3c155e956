package service

import (
	"context"
	"sync"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
	"github.com/kursadbilgin/expiry-reminder/internal/provider"
	"github.com/kursadbilgin/expiry-reminder/internal/queue"
)

type fakeMembershipRepo struct {
	findExpiringFn func(ctx context.Context, thresholdDays int) ([]domain.ExpiryCandidate, error)
}

func (f *fakeMembershipRepo) FindExpiring(ctx context.Context, thresholdDays int) ([]domain.ExpiryCandidate, error) {
	if f.findExpiringFn != nil {
		return f.findExpiringFn(ctx, thresholdDays)
	}
	return nil, nil
}

type fakeProvider struct {
	mu     sync.Mutex
	sent   []domain.OutboundMessage
	sendFn func(ctx context.Context, msg domain.OutboundMessage) (*provider.ProviderResponse, error)
}

func (f *fakeProvider) Send(ctx context.Context, msg domain.OutboundMessage) (*provider.ProviderResponse, error) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.ProviderResponse{StatusCode: 202}, nil
}

func (f *fakeProvider) calls() []domain.OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OutboundMessage(nil), f.sent...)
}

type fakeAuditRepo struct {
	mu             sync.Mutex
	entries        []domain.AuditEntry
	createFn       func(ctx context.Context, e *domain.AuditEntry) error
	listByMemberFn func(ctx context.Context, memberID string, limit int) ([]domain.AuditEntry, error)
}

func (f *fakeAuditRepo) Create(ctx context.Context, e *domain.AuditEntry) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, e); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.entries = append(f.entries, *e)
	f.mu.Unlock()
	return nil
}

func (f *fakeAuditRepo) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.AuditEntry, error) {
	if f.listByMemberFn != nil {
		return f.listByMemberFn(ctx, memberID, limit)
	}
	return nil, nil
}

func (f *fakeAuditRepo) byMembership() map[string]domain.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.AuditEntry, len(f.entries))
	for _, e := range f.entries {
		out[e.MembershipID] = e
	}
	return out
}

type fakePublisher struct {
	mu               sync.Mutex
	published        []queue.OutcomeMessage
	publishOutcomeFn func(ctx context.Context, msg queue.OutcomeMessage) error
}

func (f *fakePublisher) PublishOutcome(ctx context.Context, msg queue.OutcomeMessage) error {
	if f.publishOutcomeFn != nil {
		if err := f.publishOutcomeFn(ctx, msg); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.published = append(f.published, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, channel string) (bool, error)
	waitFn  func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, channel)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}
