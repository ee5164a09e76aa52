package service

import (
	"context"
	"errors"
	"fmt"

	"chattrix/internal/model"
	"chattrix/internal/realtime"
	"chattrix/pkg/logger"
	"chattrix/pkg/metrics"
	"chattrix/pkg/rbac"

	"go.uber.org/zap"
)

// DefaultListLimit caps how many notifications one list call returns.
const DefaultListLimit = 50

// NotificationStore is the persistence contract of the notification path.
type NotificationStore interface {
	Create(ctx context.Context, n model.NewNotification) (*model.Notification, error)
	Get(ctx context.Context, id string) (*model.Notification, error)
	// ListForRecipient returns newest first; limit <= 0 means unbounded.
	ListForRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id string) (*model.Notification, error)
	Ping(ctx context.Context) error
}

// Options tunes NotificationService. The zero value lists up to
// DefaultListLimit and trusts the caller on mutations.
type Options struct {
	ListLimit        int
	EnforceOwnership bool
}

// NotificationService persists notification state changes, then announces
// them to the recipient's live sessions. Publishing is best effort and
// never undoes a completed write.
type NotificationService struct {
	store      NotificationStore
	dispatcher realtime.Dispatcher
	logger     *zap.Logger
	opts       Options
}

func NewNotificationService(store NotificationStore, dispatcher realtime.Dispatcher, log *zap.Logger, opts Options) *NotificationService {
	if dispatcher == nil {
		dispatcher = realtime.NopDispatcher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = DefaultListLimit
	}
	return &NotificationService{
		store:      store,
		dispatcher: dispatcher,
		logger:     log,
		opts:       opts,
	}
}

// Create validates and stores a notification, then pushes notification:new
// to the recipient.
func (s *NotificationService) Create(ctx context.Context, in model.NewNotification) (*model.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	n, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, persistence("create notification", err)
	}

	metrics.IncrementNotificationCreated(string(n.Kind))
	logger.WithTrace(ctx, s.logger).Info("Notification created",
		zap.String("notification_id", n.ID),
		zap.String("recipient", n.Recipient),
		zap.String("kind", string(n.Kind)),
	)

	s.dispatcher.Publish(ctx, n.Recipient, realtime.EventNotificationNew, n)
	return n, nil
}

// MarkRead marks one notification read and pushes the recipient's new
// unread count.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) (*model.Notification, error) {
	if err := s.authorize(ctx, id, recipientID); err != nil {
		return nil, err
	}

	n, err := s.store.MarkRead(ctx, id)
	if err != nil {
		return nil, persistence("mark notification read", err)
	}

	// Not atomic with the update: concurrent mutations may publish a stale count.
	count, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, persistence("count unread", err)
	}

	s.dispatcher.Publish(ctx, recipientID, realtime.EventNotificationRead, realtime.ReadEvent{
		NotificationID: id,
		UnreadCount:    count,
	})
	return n, nil
}

// MarkAllRead marks every notification of recipientID read. The pushed
// count is always zero and is not re-checked.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	affected, err := s.store.MarkAllRead(ctx, recipientID)
	if err != nil {
		return persistence("mark all notifications read", err)
	}

	logger.WithTrace(ctx, s.logger).Debug("Notifications marked read",
		zap.String("recipient", recipientID),
		zap.Int64("affected", affected),
	)

	s.dispatcher.Publish(ctx, recipientID, realtime.EventAllRead, realtime.AllReadEvent{UnreadCount: 0})
	return nil
}

// Delete removes one notification and pushes the recipient's new unread count.
func (s *NotificationService) Delete(ctx context.Context, id, recipientID string) (*model.Notification, error) {
	if err := s.authorize(ctx, id, recipientID); err != nil {
		return nil, err
	}

	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, persistence("delete notification", err)
	}

	count, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, persistence("count unread", err)
	}

	s.dispatcher.Publish(ctx, recipientID, realtime.EventNotificationDeleted, realtime.ReadEvent{
		NotificationID: id,
		UnreadCount:    count,
	})
	return n, nil
}

// ListForRecipient returns up to limit notifications, newest first. limit is
// clamped to [1, ListLimit]; values <= 0 select the cap.
func (s *NotificationService) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > s.opts.ListLimit {
		limit = s.opts.ListLimit
	}

	list, err := s.store.ListForRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, persistence("list notifications", err)
	}
	return list, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, recipientID string) (int, error) {
	count, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, persistence("count unread", err)
	}
	return count, nil
}

// Ping reports whether the store is reachable.
func (s *NotificationService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// authorize rejects callers that are not the notification's recipient.
// It is a no-op unless EnforceOwnership is set.
func (s *NotificationService) authorize(ctx context.Context, id, callerID string) error {
	if !s.opts.EnforceOwnership {
		return nil
	}

	n, err := s.store.Get(ctx, id)
	if err != nil {
		return persistence("load notification", err)
	}
	if err := rbac.CheckOwnership(callerID, n.Recipient); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Notification access denied",
			zap.String("notification_id", id),
			zap.String("caller", callerID),
		)
		return fmt.Errorf("%w: %w", model.ErrForbidden, err)
	}
	return nil
}

// persistence wraps store failures; ErrNotFound passes through.
func persistence(op string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", model.ErrPersistence, op, err)
}
