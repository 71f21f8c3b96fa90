package realtime

import (
	"context"
	"testing"
	"time"
)

func TestHubSubscribePublish(t *testing.T) {
	hub := NewHub(nil)

	restaurantUpdates, unsubRestaurant := hub.Subscribe(RestaurantChannel("r1"))
	defer unsubRestaurant()
	orderUpdates, unsubOrder := hub.Subscribe(OrderChannel("o1"))
	defer unsubOrder()

	if err := hub.Publish(context.Background(), Update{
		EventType:    "order.status_changed",
		OrderID:      "o1",
		RestaurantID: "r1",
		Status:       "accepted",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case update := <-restaurantUpdates:
		if update.Status != "accepted" || update.OrderID != "o1" {
			t.Errorf("restaurant update = %+v", update)
		}
		if update.Timestamp.IsZero() {
			t.Error("timestamp should be stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("restaurant subscriber did not receive update")
	}

	select {
	case update := <-orderUpdates:
		if update.OrderID != "o1" {
			t.Errorf("order update = %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatal("order subscriber did not receive update")
	}
}

func TestHubScopeIsolation(t *testing.T) {
	hub := NewHub(nil)

	otherUpdates, unsub := hub.Subscribe(RestaurantChannel("r2"))
	defer unsub()

	if err := hub.Publish(context.Background(), Update{
		OrderID:      "o1",
		RestaurantID: "r1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case update := <-otherUpdates:
		t.Errorf("r2 subscriber received r1 update: %+v", update)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	scope := RestaurantChannel("r1")

	updates, unsubscribe := hub.Subscribe(scope)
	if hub.SubscriberCount(scope) != 1 {
		t.Fatalf("subscriber count = %d, want 1", hub.SubscriberCount(scope))
	}

	unsubscribe()
	if hub.SubscriberCount(scope) != 0 {
		t.Fatalf("subscriber count after unsubscribe = %d, want 0", hub.SubscriberCount(scope))
	}

	// channel is closed so ranging consumers terminate
	if _, open := <-updates; open {
		t.Error("channel should be closed after unsubscribe")
	}

	// double unsubscribe is harmless
	unsubscribe()
}

func TestHubPublishLocal(t *testing.T) {
	hub := NewHub(nil)

	updates, unsubscribe := hub.Subscribe(OrderChannel("o1"))
	defer unsubscribe()

	hub.PublishLocal(context.Background(), Update{
		EventType:    "order.status_changed",
		OrderID:      "o1",
		RestaurantID: "r1",
		Status:       "ready",
	})

	select {
	case update := <-updates:
		if update.Status != "ready" {
			t.Errorf("update = %+v", update)
		}
		if update.Timestamp.IsZero() {
			t.Error("timestamp should be stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive locally published update")
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	scope := RestaurantChannel("r1")

	// never drained; buffer is 16
	_, unsubscribe := hub.Subscribe(scope)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Publish(context.Background(), Update{OrderID: "o1", RestaurantID: "r1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
