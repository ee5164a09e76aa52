package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mqcontracts "chattrix/contracts/mq"
	"chattrix/internal/model"
	"chattrix/pkg/circuitbreaker"
	"chattrix/pkg/logger"
	"chattrix/pkg/metrics"
	"chattrix/pkg/util"

	"go.uber.org/zap"
)

const (
	handlerName       = "notification_requested"
	defaultMaxRetries = 5
)

type NotificationCreator interface {
	Create(ctx context.Context, in model.NewNotification) (*model.Notification, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, key string) bool
	Release(ctx context.Context, handler string, key string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type DeadLetterPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// NotificationRequestedHandler turns notification.requested events into
// stored notifications. It returns an error only when the broker should
// redeliver the message.
type NotificationRequestedHandler struct {
	creator      NotificationCreator
	deduper      Deduper
	retryCounter RetryCounter
	dlq          DeadLetterPublisher
	breaker      *circuitbreaker.CircuitBreaker
	maxRetries   int64
	logger       *zap.Logger
}

func NewNotificationRequestedHandler(
	creator NotificationCreator,
	deduper Deduper,
	retryCounter RetryCounter,
	dlq DeadLetterPublisher,
	breaker *circuitbreaker.CircuitBreaker,
	maxRetries int,
	logger *zap.Logger,
) *NotificationRequestedHandler {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(BreakerConfig())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationRequestedHandler{
		creator:      creator,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		breaker:      breaker,
		maxRetries:   int64(maxRetries),
		logger:       logger,
	}
}

// BreakerConfig trips only on store failures; bad events never open it.
func BreakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig()
	cfg.IsFailure = func(err error) bool {
		return errors.Is(err, model.ErrPersistence)
	}
	return cfg
}

func (h *NotificationRequestedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.NotificationRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// JSON decode 错误 - 不可重试，发送到 DLQ
		log.Error("Failed to unmarshal notification requested payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		h.deadLetter(log, raw, err)
		return nil
	}

	log = log.With(
		zap.String("event_id", p.EventID),
		zap.String("recipient", p.Recipient),
		zap.String("type", p.Type),
	)

	// Redis 去重：没有 event_id 的事件无法去重，直接处理
	if p.EventID != "" && !h.deduper.AcquireOnce(ctx, handlerName, p.EventID) {
		metrics.IncrementMQMessage(mqcontracts.RoutingKeyNotificationRequested, "duplicate")
		log.Info("Duplicate notification event skipped")
		return nil
	}

	err := h.breaker.Execute(func() error {
		_, err := h.creator.Create(ctx, model.NewNotification{
			Recipient:   p.Recipient,
			Sender:      p.Sender,
			Kind:        model.Kind(p.Type),
			Content:     p.Content,
			RelatedPost: p.PostID,
		})
		return err
	})
	if err == nil {
		h.resetRetries(ctx, log, p.EventID)
		log.Info("Notification event handled")
		return nil
	}

	if model.IsValidation(err) {
		log.Warn("Rejected notification event (non-retryable, sending to DLQ)", zap.Error(err))
		h.deadLetter(log, raw, err)
		return nil
	}

	isRetryable, errType := util.IsRetryableError(err)
	retryCount := int64(1)
	if p.EventID != "" && isRetryable {
		count, rerr := h.retryCounter.IncrementAndGet(ctx, util.FormatRetryKey(handlerName, p.EventID))
		if rerr != nil {
			// Redis 错误不影响处理，继续执行
			log.Warn("Failed to get retry count, continuing anyway", zap.Error(rerr))
		} else {
			retryCount = count
		}
	}

	log.Error("Failed to create notification from event",
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Int64("retry_count", retryCount),
		zap.Int64("max_retries", h.maxRetries),
		zap.Error(err),
	)

	if !util.ShouldRetry(retryCount, h.maxRetries, isRetryable) {
		h.deadLetter(log, raw, err)
		h.resetRetries(ctx, log, p.EventID)
		return nil
	}

	// 释放去重锁，否则重新投递的消息会被当成重复事件跳过
	if p.EventID != "" {
		h.deduper.Release(ctx, handlerName, p.EventID)
	}
	return fmt.Errorf("%s: %w", errType, err)
}

func (h *NotificationRequestedHandler) deadLetter(log *zap.Logger, raw []byte, cause error) {
	metrics.IncrementMQMessage(mqcontracts.RoutingKeyNotificationRequested, "dead_letter")
	if err := h.dlq.PublishToDLQ(mqcontracts.RoutingKeyNotificationRequested, raw, cause.Error()); err != nil {
		log.Error("Failed to publish to DLQ", zap.Error(err))
	}
}

func (h *NotificationRequestedHandler) resetRetries(ctx context.Context, log *zap.Logger, eventID string) {
	if eventID == "" {
		return
	}
	if err := h.retryCounter.Reset(ctx, util.FormatRetryKey(handlerName, eventID)); err != nil {
		log.Debug("Failed to reset retry count", zap.Error(err))
	}
}
