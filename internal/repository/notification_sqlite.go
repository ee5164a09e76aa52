package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chattrix/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SQLiteNotificationRepository is the notification store used for local
// development and tests.
type SQLiteNotificationRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLiteNotificationRepository(db *sqlx.DB) *SQLiteNotificationRepository {
	return &SQLiteNotificationRepository{db: db, now: time.Now}
}

func (r *SQLiteNotificationRepository) Create(ctx context.Context, n model.NewNotification) (*model.Notification, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, sender_id, kind, content, post_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		id, n.Recipient, nullable(n.Sender), string(n.Kind), n.Content, nullable(n.RelatedPost),
		r.now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *SQLiteNotificationRepository) Get(ctx context.Context, id string) (*model.Notification, error) {
	var row notificationRow
	err := r.db.GetContext(ctx, &row, selectResolvedNotification+` WHERE n.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *SQLiteNotificationRepository) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error) {
	query := selectResolvedNotification + `
		WHERE n.recipient_id = ?
		ORDER BY n.created_at DESC, n.id DESC`
	args := []any{recipientID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	list := make([]*model.Notification, 0, len(rows))
	for i := range rows {
		list = append(list, rows[i].toModel())
	}
	return list, nil
}

func (r *SQLiteNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0", recipientID,
	)
	return count, err
}

func (r *SQLiteNotificationRepository) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, model.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *SQLiteNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE recipient_id = ? AND is_read = 0", recipientID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteNotificationRepository) Delete(ctx context.Context, id string) (*model.Notification, error) {
	n, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, model.ErrNotFound
	}
	return n, nil
}

func (r *SQLiteNotificationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
