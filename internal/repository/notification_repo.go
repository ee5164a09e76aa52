package repository

import (
	"context"
	"errors"
	"time"

	"chattrix/internal/model"
	"chattrix/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db, now: time.Now}
}

func (r *NotificationRepository) Create(ctx context.Context, n model.NewNotification) (*model.Notification, error) {
	defer observe(notificationsTable, "insert", time.Now())

	id := uuid.NewString()
	query := `
        INSERT INTO notifications (id, recipient_id, sender_id, kind, content, post_id, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
    `
	_, err := r.db.Exec(ctx, query,
		id,
		n.Recipient,
		nullable(n.Sender),
		string(n.Kind),
		n.Content,
		nullable(n.RelatedPost),
		r.now().UTC(),
	)
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

func (r *NotificationRepository) Get(ctx context.Context, id string) (*model.Notification, error) {
	defer observe(notificationsTable, "select", time.Now())

	query := selectResolvedNotification + ` WHERE n.id = $1`

	var row notificationRow
	if err := r.db.QueryRow(ctx, query, id).Scan(row.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// ListForRecipient returns newest first. limit <= 0 returns every row.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error) {
	defer observe(notificationsTable, "select", time.Now())

	query := selectResolvedNotification + `
        WHERE n.recipient_id = $1
        ORDER BY n.created_at DESC, n.id DESC
    `
	args := []any{recipientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.Notification, 0)
	for rows.Next() {
		var row notificationRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, err
		}
		list = append(list, row.toModel())
	}
	return list, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	defer observe(notificationsTable, "count", time.Now())

	query := `
        SELECT COUNT(*) FROM notifications
        WHERE recipient_id = $1 AND is_read = FALSE
    `
	var count int
	err := r.db.QueryRow(ctx, query, recipientID).Scan(&count)
	return count, err
}

// MarkRead is idempotent: an already-read record is returned unchanged.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	start := time.Now()

	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	observe(notificationsTable, "update", start)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	defer observe(notificationsTable, "update", time.Now())

	query := `
        UPDATE notifications SET is_read = TRUE
        WHERE recipient_id = $1 AND is_read = FALSE
    `
	tag, err := r.db.Exec(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes the record and returns its last stored state.
func (r *NotificationRepository) Delete(ctx context.Context, id string) (*model.Notification, error) {
	n, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	observe(notificationsTable, "delete", start)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrNotFound
	}
	return n, nil
}

func (r *NotificationRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func observe(table, operation string, start time.Time) {
	metrics.RecordDBQueryDuration(operation, table, time.Since(start))
}

const (
	notificationsTable = "notifications"
	relationshipsTable = "user_relationships"
)
