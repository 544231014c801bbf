package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps event records in PostgreSQL. The unique index on
// external_id makes Insert the idempotency claim: concurrent deliveries
// of the same id serialize on the constraint and only one row wins.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed event store.
func NewPGStore(pool *pgxpool.Pool) (*PGStore, error) {
	if pool == nil {
		return nil, ErrStoreNil
	}
	return &PGStore{pool: pool}, nil
}

const pgEventColumns = `id, external_id, type, payload, received_at, status, retry_count, last_error`

func (s *PGStore) Insert(ctx context.Context, event *Event) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO billing_events (id, external_id, type, payload, received_at, status, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id) DO NOTHING`,
		event.ID, event.ExternalID, event.Type, event.Payload, event.ReceivedAt, event.Status, event.RetryCount)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, externalID string) (*Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgEventColumns+` FROM billing_events WHERE external_id = $1`, externalID)
	return scanEvent(row)
}

func (s *PGStore) MarkProcessed(ctx context.Context, externalID string) error {
	return s.exec(ctx,
		`UPDATE billing_events SET status = $2, last_error = NULL WHERE external_id = $1`,
		externalID, StatusProcessed)
}

func (s *PGStore) MarkSkipped(ctx context.Context, externalID, reason string) error {
	return s.exec(ctx,
		`UPDATE billing_events SET status = $2, last_error = $3 WHERE external_id = $1`,
		externalID, StatusSkipped, reason)
}

func (s *PGStore) MarkFailed(ctx context.Context, externalID, errMsg string) error {
	return s.exec(ctx,
		`UPDATE billing_events SET status = $2, retry_count = retry_count + 1, last_error = $3 WHERE external_id = $1`,
		externalID, StatusFailed, errMsg)
}

func (s *PGStore) MarkDeadLetter(ctx context.Context, externalID string) error {
	return s.exec(ctx,
		`UPDATE billing_events SET status = $2 WHERE external_id = $1`,
		externalID, StatusDeadLetter)
}

func (s *PGStore) ListFailed(ctx context.Context, belowRetries int8, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgEventColumns+` FROM billing_events
		WHERE status = $1 AND retry_count < $2
		ORDER BY received_at ASC
		LIMIT $3`,
		StatusFailed, belowRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed events: %w", err)
	}
	return collectEvents(rows)
}

func (s *PGStore) ListDeadLetters(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgEventColumns+` FROM billing_events
		WHERE status = $1
		ORDER BY received_at ASC
		LIMIT $2`,
		StatusDeadLetter, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead-lettered events: %w", err)
	}
	return collectEvents(rows)
}

func (s *PGStore) Requeue(ctx context.Context, externalID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE billing_events
		SET status = $2, retry_count = 0, last_error = NULL
		WHERE external_id = $1 AND status = $3`,
		externalID, StatusFailed, StatusDeadLetter)
	if err != nil {
		return fmt.Errorf("requeue event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, externalID); err != nil {
			return err
		}
		return ErrNotDeadLettered
	}
	return nil
}

func (s *PGStore) exec(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var evt Event
	err := row.Scan(&evt.ID, &evt.ExternalID, &evt.Type, &evt.Payload,
		&evt.ReceivedAt, &evt.Status, &evt.RetryCount, &evt.LastError)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &evt, nil
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	defer rows.Close()

	var out []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
