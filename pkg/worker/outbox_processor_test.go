package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "worker_outbox")

// fakeOutboxRepo hands each pending event out exactly once, the way the
// postgres claim moves rows to processing before returning them.
type fakeOutboxRepo struct {
	pending   []*model.OutboxEvent
	processed []uuid.UUID
	failed    map[uuid.UUID]string
}

func newFakeOutboxRepo(events ...*model.OutboxEvent) *fakeOutboxRepo {
	return &fakeOutboxRepo{pending: events, failed: make(map[uuid.UUID]string)}
}

func (f *fakeOutboxRepo) ClaimPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	claimed := f.pending[:limit]
	f.pending = f.pending[limit:]
	for _, e := range claimed {
		e.Status = model.OutboxStatusProcessing
	}
	return claimed, nil
}

func (f *fakeOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

type fakeBroker struct {
	published []string
	err       error
}

func (f *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, channel)
	return nil
}

func (f *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

func testConfig(batch int) OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     batch,
		PollInterval:  time.Minute,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}
}

func event(eventType string) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{}`),
		Status:    model.OutboxStatusPending,
	}
}

func TestProcessEventsPublishesAndMarksProcessed(t *testing.T) {
	first := event(model.EventAppointmentRequested)
	second := event(model.EventAppointmentBooked)
	repo := newFakeOutboxRepo(first, second)
	broker := &fakeBroker{}
	p := NewOutboxProcessor(repo, broker, testConfig(10), testMetrics)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, []string{first.EventType, second.EventType}, broker.published)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, repo.processed)
	assert.Empty(t, repo.failed)
}

func TestProcessEventsClaimsEachEventOnce(t *testing.T) {
	e := event(model.EventAppointmentRequested)
	repo := newFakeOutboxRepo(e)
	broker := &fakeBroker{}
	p := NewOutboxProcessor(repo, broker, testConfig(10), testMetrics)

	ctx := context.Background()
	require.NoError(t, p.processEvents(ctx))
	require.NoError(t, p.processEvents(ctx))

	// The second poll finds nothing: the claim already moved it out of pending.
	assert.Equal(t, []string{e.EventType}, broker.published)
	assert.Equal(t, []uuid.UUID{e.ID}, repo.processed)
}

func TestProcessEventsMarksFailedAfterRetries(t *testing.T) {
	e := event(model.EventAppointmentCancelled)
	repo := newFakeOutboxRepo(e)
	broker := &fakeBroker{err: errors.New("broker down")}
	p := NewOutboxProcessor(repo, broker, testConfig(10), testMetrics)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, repo.processed)
	assert.Equal(t, "broker down", repo.failed[e.ID])
}
