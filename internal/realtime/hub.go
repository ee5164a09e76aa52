package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"chattrix/pkg/logger"
	"chattrix/pkg/metrics"

	"go.uber.org/zap"
)

const defaultSendBuffer = 16

// Hub is the in-process registry of live sessions keyed by user id.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub creates a Hub whose subscriptions buffer up to buffer frames.
func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: log,
	}
}

// Subscription is one session's view of a user's event stream.
type Subscription struct {
	hub    *Hub
	userID string
	ch     chan []byte
	once   sync.Once
}

// Messages yields encoded envelopes. It is closed by Close.
func (s *Subscription) Messages() <-chan []byte {
	return s.ch
}

func (s *Subscription) UserID() string {
	return s.userID
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		userID: userID,
		ch:     make(chan []byte, h.buffer),
	}

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	metrics.RealtimeSessions.Inc()
	h.logger.Debug("Realtime session subscribed", zap.String("user_id", userID))
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.userID)
		}
	}
	// closed under the write lock so Publish never sends on a closed channel
	close(sub.ch)
	h.mu.Unlock()

	metrics.RealtimeSessions.Dec()
	h.logger.Debug("Realtime session closed", zap.String("user_id", sub.userID))
}

// SessionCount returns the number of live sessions for userID.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Publish never blocks: a session whose buffer is full misses the event.
func (h *Hub) Publish(ctx context.Context, userID, event string, payload any) {
	log := logger.WithTrace(ctx, h.logger)

	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Error("Failed to encode realtime event",
			zap.String("event", event),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		metrics.IncrementRealtimeEvent(event, "dropped")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subs[userID]
	if len(set) == 0 {
		metrics.IncrementRealtimeEvent(event, "no_subscriber")
		return
	}

	for sub := range set {
		select {
		case sub.ch <- frame:
			metrics.IncrementRealtimeEvent(event, "delivered")
		default:
			metrics.IncrementRealtimeEvent(event, "dropped")
			log.Warn("Realtime session buffer full, event dropped",
				zap.String("event", event),
				zap.String("user_id", userID),
			)
		}
	}
}

// CloseAll ends every live subscription, which in turn closes its session.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range all {
		sub.Close()
	}
}
