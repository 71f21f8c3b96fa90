// Package realtime broadcasts order updates to live subscribers. Delivery is
// fire-and-forget with no replay: a subscriber that misses an update re-reads
// the order through the query surface.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tably/resto-core/pkg/logger"
)

// Update is the payload delivered to realtime subscribers
type Update struct {
	EventType      string    `json:"event_type"`
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	RestaurantID   string    `json:"restaurant_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	PaymentStatus  string    `json:"payment_status"`
	Timestamp      time.Time `json:"timestamp"`
}

// RestaurantChannel is the redis channel carrying all updates of a restaurant
func RestaurantChannel(restaurantID string) string {
	return fmt.Sprintf("restaurant:%s:orders", restaurantID)
}

// OrderChannel is the redis channel carrying updates of a single order
func OrderChannel(orderID string) string {
	return fmt.Sprintf("order:%s", orderID)
}

// Hub fans updates out to in-process subscribers, scoped either to a
// restaurant (dashboards) or to a single order (a customer's tracking view),
// and mirrors every update to redis pub/sub so other instances can serve
// their own subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Update]struct{} // scope -> set of channels
	redisClient *redis.Client
}

// NewHub creates a new hub. redisClient may be nil for single-instance
// deployments and tests; local delivery still works.
func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Update]struct{}),
		redisClient: redisClient,
	}
}

// Subscribe joins a scope ("restaurant:<id>:orders" or "order:<id>") and
// returns the update channel plus an unsubscribe func.
func (h *Hub) Subscribe(scope string) (<-chan Update, func()) {
	ch := make(chan Update, 16)

	h.mu.Lock()
	if h.subscribers[scope] == nil {
		h.subscribers[scope] = make(map[chan Update]struct{})
	}
	h.subscribers[scope][ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[scope]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.subscribers, scope)
			}
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}

// Publish delivers the update to restaurant-wide and order-scoped
// subscribers. Slow subscribers are skipped rather than blocked on.
func (h *Hub) Publish(ctx context.Context, update Update) error {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	scopes := []string{
		RestaurantChannel(update.RestaurantID),
		OrderChannel(update.OrderID),
	}

	h.deliverLocal(ctx, update, scopes)

	if h.redisClient == nil {
		return nil
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	for _, scope := range scopes {
		if err := h.redisClient.Publish(ctx, scope, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", scope, err)
		}
	}

	return nil
}

// PublishLocal delivers the update to in-process subscribers without mirroring
// it to redis. Relays use it for updates that already crossed a shared channel.
func (h *Hub) PublishLocal(ctx context.Context, update Update) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	h.deliverLocal(ctx, update, []string{
		RestaurantChannel(update.RestaurantID),
		OrderChannel(update.OrderID),
	})
}

func (h *Hub) deliverLocal(ctx context.Context, update Update, scopes []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, scope := range scopes {
		for ch := range h.subscribers[scope] {
			select {
			case ch <- update:
			default:
				logger.Warn(ctx).
					Str("scope", scope).
					Str("order_id", update.OrderID).
					Msg("Dropping realtime update for slow subscriber")
			}
		}
	}
}

// SubscriberCount reports the number of subscribers on a scope
func (h *Hub) SubscriberCount(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[scope])
}
