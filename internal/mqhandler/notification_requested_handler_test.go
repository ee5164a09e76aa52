package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	mqcontracts "chattrix/contracts/mq"
	"chattrix/internal/model"
	"chattrix/pkg/circuitbreaker"
	"chattrix/pkg/util"
)

type fakeCreator struct {
	calls []model.NewNotification
	err   error
}

func (f *fakeCreator) Create(_ context.Context, in model.NewNotification) (*model.Notification, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &model.Notification{ID: "n1", Recipient: in.Recipient, Kind: in.Kind}, nil
}

type memDeduper struct {
	seen     map[string]bool
	released []string
}

func (d *memDeduper) AcquireOnce(_ context.Context, handler, key string) bool {
	k := util.FormatDedupKey(handler, key)
	if d.seen[k] {
		return false
	}
	d.seen[k] = true
	return true
}

func (d *memDeduper) Release(_ context.Context, handler, key string) {
	delete(d.seen, util.FormatDedupKey(handler, key))
	d.released = append(d.released, key)
}

type memRetryCounter struct {
	counts map[string]int64
}

func (r *memRetryCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	r.counts[key]++
	return r.counts[key], nil
}

func (r *memRetryCounter) Reset(_ context.Context, key string) error {
	delete(r.counts, key)
	return nil
}

type dlqMessage struct {
	routingKey string
	reason     string
}

type memDLQ struct {
	messages []dlqMessage
}

func (q *memDLQ) PublishToDLQ(routingKey string, _ []byte, originalError string) error {
	q.messages = append(q.messages, dlqMessage{routingKey: routingKey, reason: originalError})
	return nil
}

type fixture struct {
	creator *fakeCreator
	deduper *memDeduper
	retries *memRetryCounter
	dlq     *memDLQ
	handler *NotificationRequestedHandler
}

func newFixture(maxRetries int) *fixture {
	f := &fixture{
		creator: &fakeCreator{},
		deduper: &memDeduper{seen: map[string]bool{}},
		retries: &memRetryCounter{counts: map[string]int64{}},
		dlq:     &memDLQ{},
	}
	f.handler = NewNotificationRequestedHandler(f.creator, f.deduper, f.retries, f.dlq, nil, maxRetries, nil)
	return f
}

func event(t *testing.T, p mqcontracts.NotificationRequestedPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestHandleCreatesNotification(t *testing.T) {
	f := newFixture(3)
	raw := event(t, mqcontracts.NotificationRequestedPayload{
		EventID:   "evt-1",
		Recipient: "u1",
		Sender:    "u2",
		Type:      "comment",
		Content:   "Nice!",
		PostID:    "p1",
		CreatedAt: time.Now(),
	})

	if err := f.handler.Handle(context.Background(), raw); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(f.creator.calls) != 1 {
		t.Fatalf("Create called %d times", len(f.creator.calls))
	}
	want := model.NewNotification{Recipient: "u1", Sender: "u2", Kind: model.KindComment, Content: "Nice!", RelatedPost: "p1"}
	if f.creator.calls[0] != want {
		t.Errorf("Create(%+v), want %+v", f.creator.calls[0], want)
	}
}

func TestHandleSkipsDuplicates(t *testing.T) {
	f := newFixture(3)
	raw := event(t, mqcontracts.NotificationRequestedPayload{EventID: "evt-1", Recipient: "u1", Type: "like"})

	for range 2 {
		if err := f.handler.Handle(context.Background(), raw); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}
	if len(f.creator.calls) != 1 {
		t.Errorf("Create called %d times, want 1", len(f.creator.calls))
	}
}

func TestHandleDeadLettersBadInput(t *testing.T) {
	f := newFixture(3)

	if err := f.handler.Handle(context.Background(), json.RawMessage(`{not json`)); err != nil {
		t.Errorf("Handle(bad json) error = %v", err)
	}
	invalid := event(t, mqcontracts.NotificationRequestedPayload{EventID: "evt-2", Recipient: "u1", Type: "invalid"})
	if err := f.handler.Handle(context.Background(), invalid); err != nil {
		t.Errorf("Handle(invalid kind) error = %v", err)
	}

	if len(f.dlq.messages) != 2 {
		t.Fatalf("dead-lettered %d messages, want 2", len(f.dlq.messages))
	}
	for _, m := range f.dlq.messages {
		if m.routingKey != mqcontracts.RoutingKeyNotificationRequested {
			t.Errorf("routing key = %q", m.routingKey)
		}
	}
}

func TestHandleRetriesThenDeadLetters(t *testing.T) {
	f := newFixture(2)
	f.creator.err = fmt.Errorf("%w: create notification: %w", model.ErrPersistence, context.DeadlineExceeded)
	raw := event(t, mqcontracts.NotificationRequestedPayload{EventID: "evt-3", Recipient: "u1", Type: "like"})

	for attempt := 1; attempt <= 2; attempt++ {
		if err := f.handler.Handle(context.Background(), raw); err == nil {
			t.Fatalf("attempt %d: expected requeue error", attempt)
		}
	}
	if len(f.deduper.released) != 2 {
		t.Errorf("dedup released %d times, want 2", len(f.deduper.released))
	}

	if err := f.handler.Handle(context.Background(), raw); err != nil {
		t.Fatalf("final attempt error = %v, want ack", err)
	}
	if len(f.dlq.messages) != 1 {
		t.Errorf("dead-lettered %d messages, want 1", len(f.dlq.messages))
	}
	if len(f.retries.counts) != 0 {
		t.Errorf("retry counter not reset: %v", f.retries.counts)
	}
}

func TestHandleNonRetryableStoreError(t *testing.T) {
	f := newFixture(5)
	f.creator.err = fmt.Errorf("%w: create notification: %w", model.ErrPersistence, errors.New("CHECK constraint failed"))
	raw := event(t, mqcontracts.NotificationRequestedPayload{EventID: "evt-4", Recipient: "u1", Type: "like"})

	if err := f.handler.Handle(context.Background(), raw); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(f.dlq.messages) != 1 {
		t.Errorf("dead-lettered %d messages, want 1", len(f.dlq.messages))
	}
}

func TestBreakerIgnoresValidationErrors(t *testing.T) {
	cfg := BreakerConfig()
	cfg.FailureThreshold = 1
	breaker := circuitbreaker.NewCircuitBreaker(cfg)
	f := newFixture(3)
	f.handler.breaker = breaker

	invalid := event(t, mqcontracts.NotificationRequestedPayload{EventID: "evt-5", Recipient: "", Type: "like"})
	if err := f.handler.Handle(context.Background(), invalid); err != nil {
		t.Fatal(err)
	}
	if breaker.GetState() != circuitbreaker.StateClosed {
		t.Errorf("state = %s, want closed", breaker.GetState())
	}

	f.creator.err = fmt.Errorf("%w: boom", model.ErrPersistence)
	_ = f.handler.Handle(context.Background(), event(t, mqcontracts.NotificationRequestedPayload{EventID: "evt-6", Recipient: "u1", Type: "like"}))
	if breaker.GetState() != circuitbreaker.StateOpen {
		t.Errorf("state = %s, want open", breaker.GetState())
	}
}
