package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage is a Postgres-backed Storage. Channels and attempt history
// are stored as JSONB so the append-only history stays a single row
// update.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres-backed notification storage.
func NewPGStorage(pool *pgxpool.Pool) (*PGStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PGStorage{pool: pool}, nil
}

const pgNotifColumns = `id, user_id, category, priority, title, body, data, channels,
	status, attempts, created_at, scheduled_for, expires_at, read_at, clicked_at`

func (s *PGStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == "" || notif.UserID == "" {
		return ErrInvalidRequest
	}

	data, err := json.Marshal(notif.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	channels, err := json.Marshal(notif.Channels)
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}
	attempts, err := json.Marshal(notif.Attempts)
	if err != nil {
		return fmt.Errorf("encode attempts: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, category, priority, title, body, data, channels,
			status, attempts, created_at, scheduled_for, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		notif.ID, notif.UserID, notif.Category, notif.Priority, notif.Title, notif.Body,
		data, channels, notif.Status, attempts, notif.CreatedAt, notif.ScheduledFor, notif.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PGStorage) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgNotifColumns+` FROM notifications WHERE id = $1 AND user_id = $2`,
		notifID, userID)
	return scanNotification(row)
}

func (s *PGStorage) GetByID(ctx context.Context, notifID string) (*Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgNotifColumns+` FROM notifications WHERE id = $1`, notifID)
	return scanNotification(row)
}

func (s *PGStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	query := `SELECT ` + pgNotifColumns + ` FROM notifications WHERE user_id = $1 AND status <> 'pending'`
	args := []any{userID}

	if opts.OnlyUnread {
		query += ` AND read_at IS NULL`
	}
	if len(opts.Categories) > 0 {
		args = append(args, opts.Categories)
		query += fmt.Sprintf(` AND category = ANY($%d)`, len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		query += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		query += fmt.Sprintf(` AND (title ILIKE $%d OR body ILIKE $%d)`, len(args), len(args))
	}

	query += ` ORDER BY created_at DESC`
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return collectNotifications(rows)
}

func (s *PGStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read_at = NOW()
		WHERE user_id = $1 AND id = ANY($2) AND read_at IS NULL`,
		userID, notifIDs)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *PGStorage) MarkClicked(ctx context.Context, userID, notifID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET clicked_at = COALESCE(clicked_at, NOW())
		WHERE user_id = $1 AND id = $2`,
		userID, notifID)
	if err != nil {
		return fmt.Errorf("mark notification clicked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *PGStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND id = ANY($2)`,
		userID, notifIDs)
	if err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

func (s *PGStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND status <> 'pending' AND read_at IS NULL`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PGStorage) UpdateStatus(ctx context.Context, notifID string, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET status = $2 WHERE id = $1`, notifID, status)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *PGStorage) AppendAttempt(ctx context.Context, notifID string, attempt DeliveryAttempt) (*Notification, error) {
	encoded, err := json.Marshal(attempt)
	if err != nil {
		return nil, fmt.Errorf("encode attempt: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE notifications
		SET attempts = attempts || $2::jsonb
		WHERE id = $1
		RETURNING `+pgNotifColumns,
		notifID, encoded)
	return scanNotification(row)
}

func (s *PGStorage) ListByStatus(ctx context.Context, status Status, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgNotifColumns+` FROM notifications
		WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications by status: %w", err)
	}
	return collectNotifications(rows)
}

func (s *PGStorage) ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgNotifColumns+` FROM notifications
		WHERE status = 'pending' AND scheduled_for IS NOT NULL AND scheduled_for <= $1
		ORDER BY scheduled_for ASC LIMIT $2`,
		before, limit)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	return collectNotifications(rows)
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n        Notification
		data     []byte
		channels []byte
		attempts []byte
	)
	err := row.Scan(&n.ID, &n.UserID, &n.Category, &n.Priority, &n.Title, &n.Body,
		&data, &channels, &n.Status, &attempts, &n.CreatedAt,
		&n.ScheduledFor, &n.ExpiresAt, &n.ReadAt, &n.ClickedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	if err := json.Unmarshal(channels, &n.Channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &n.Attempts); err != nil {
			return nil, fmt.Errorf("decode attempts: %w", err)
		}
	}
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]Notification, error) {
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

// PGPreferences is a Postgres-backed PreferencesStore.
type PGPreferences struct {
	pool *pgxpool.Pool
}

// NewPGPreferences creates a Postgres-backed preferences store.
func NewPGPreferences(pool *pgxpool.Pool) (*PGPreferences, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PGPreferences{pool: pool}, nil
}

func (s *PGPreferences) Get(ctx context.Context, userID string) (*Preferences, error) {
	var (
		p          Preferences
		channels   []byte
		categories []byte
		quiet      []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, channels, categories, frequency, quiet_hours, do_not_disturb, updated_at
		FROM notification_preferences WHERE user_id = $1`,
		userID).Scan(&p.UserID, &channels, &categories, &p.Frequency, &quiet, &p.DoNotDisturb, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPreferencesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	if err := json.Unmarshal(channels, &p.Channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	if err := json.Unmarshal(categories, &p.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if err := json.Unmarshal(quiet, &p.QuietHours); err != nil {
		return nil, fmt.Errorf("decode quiet hours: %w", err)
	}
	return &p, nil
}

func (s *PGPreferences) Save(ctx context.Context, prefs Preferences) error {
	channels, err := json.Marshal(prefs.Channels)
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}
	categories, err := json.Marshal(prefs.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	quiet, err := json.Marshal(prefs.QuietHours)
	if err != nil {
		return fmt.Errorf("encode quiet hours: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (user_id, channels, categories, frequency, quiet_hours, do_not_disturb, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			channels = EXCLUDED.channels,
			categories = EXCLUDED.categories,
			frequency = EXCLUDED.frequency,
			quiet_hours = EXCLUDED.quiet_hours,
			do_not_disturb = EXCLUDED.do_not_disturb,
			updated_at = EXCLUDED.updated_at`,
		prefs.UserID, channels, categories, prefs.Frequency, quiet, prefs.DoNotDisturb, prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
