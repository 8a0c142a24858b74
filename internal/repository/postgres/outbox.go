package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ivyhms/clinic-api/internal/model"
)

// insertOutboxEvent writes the event on the caller's transaction so it
// commits or rolls back together with the domain row it describes.
func insertOutboxEvent(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// ClaimPendingEvents moves a batch to processing in a single statement.
// SKIP LOCKED in the subquery makes concurrent workers claim disjoint sets.
func (r *outboxRepository) ClaimPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET status = $1
		WHERE id IN (
			SELECT id
			FROM outbox_events
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, payload, status, error, created_at, processed_at
	`
	var events []*model.OutboxEvent
	if err := r.db.SelectContext(ctx, &events, query, model.OutboxStatusProcessing, model.OutboxStatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = $2
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE outbox_events
		SET status = $1, error = $2
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, model.OutboxStatusFailed, errMsg, id); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}
