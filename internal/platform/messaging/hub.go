package messaging

import (
	"context"
	"log/slog"
	"sync"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	"livepoll/contexts/polling/vote-tally-engine/ports"
)

const DefaultSubscriberBuffer = 128

// HubObserver receives fan-out statistics. Implementations must not block.
type HubObserver interface {
	SubscriberOpened(pollID string)
	SubscriberClosed(pollID string)
	DeltaDropped(pollID string)
}

// Hub is the in-process per-poll topic bus. Publish never blocks: a
// subscriber whose buffer is full misses the event. Subscribers only see
// events published after they subscribed.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscription]struct{}
	closed      bool
	buffer      int
	observer    HubObserver
	logger      *slog.Logger
}

func NewHub(buffer int, observer HubObserver, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]map[*subscription]struct{}),
		buffer:      buffer,
		observer:    observer,
		logger:      logger,
	}
}

// Publish delivers event to every current subscriber of its poll. Sends
// happen under the read lock so a concurrent Close cannot close a channel
// mid-send.
func (h *Hub) Publish(_ context.Context, event entities.DeltaEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subscribers[event.PollID] {
		select {
		case sub.events <- event:
			delivered++
		default:
			if h.observer != nil {
				h.observer.DeltaDropped(event.PollID)
			}
			h.logger.Warn("dropping delta for slow subscriber",
				"event", "hub_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"poll_id", event.PollID,
				"option_id", event.OptionID,
			)
		}
	}

	h.logger.Debug("delta published",
		"event", "hub_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"poll_id", event.PollID,
		"option_id", event.OptionID,
		"votes", event.Votes,
		"delivered", delivered,
	)
}

// Subscribe registers a new subscriber on pollID. The subscription is
// released by Close or when ctx is done, whichever happens first.
func (h *Hub) Subscribe(ctx context.Context, pollID string) (ports.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscription{
		hub:    h,
		pollID: pollID,
		events: make(chan entities.DeltaEvent, h.buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, domainerrors.ErrSubscriptionClosed
	}
	if h.subscribers[pollID] == nil {
		h.subscribers[pollID] = make(map[*subscription]struct{})
	}
	h.subscribers[pollID][sub] = struct{}{}
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.SubscriberOpened(pollID)
	}
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Close releases every subscription and rejects later Subscribe calls.
// Subscribers observe their Events channel closing.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var open []*subscription
	for _, items := range h.subscribers {
		for sub := range items {
			open = append(open, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range open {
		sub.Close()
	}
}

// SubscriberCount reports the live subscribers of a poll.
func (h *Hub) SubscriberCount(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[pollID])
}

func (h *Hub) removeSubscriber(target *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	items := h.subscribers[target.pollID]
	delete(items, target)
	if len(items) == 0 {
		delete(h.subscribers, target.pollID)
	}
	close(target.events)
}

type subscription struct {
	hub    *Hub
	pollID string
	events chan entities.DeltaEvent
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Events() <-chan entities.DeltaEvent {
	return s.events
}

func (s *subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.hub.removeSubscriber(s)
		if s.hub.observer != nil {
			s.hub.observer.SubscriberClosed(s.pollID)
		}
		s.hub.logger.Debug("subscriber released",
			"event", "hub_subscriber_released",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"poll_id", s.pollID,
		)
	})
}

var _ ports.Broadcaster = (*Hub)(nil)
