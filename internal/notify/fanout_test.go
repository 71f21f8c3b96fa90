package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/notify/realtime"
	"github.com/tably/resto-core/internal/order/domain"
)

type fakeRealtimeSink struct {
	mu      sync.Mutex
	updates []realtime.Update
	err     error
}

func (f *fakeRealtimeSink) Publish(ctx context.Context, update realtime.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	return f.err
}

type fakeEventSink struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (f *fakeEventSink) PublishOrderEvent(ctx context.Context, event events.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type fakeWebhookSink struct {
	mu         sync.Mutex
	configured bool
	sent       int
	err        error
	delay      time.Duration
}

func (f *fakeWebhookSink) Configured() bool {
	return f.configured
}

func (f *fakeWebhookSink) Send(ctx context.Context, order *domain.Order) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return f.err
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:            "o1",
		OrderNumber:   "ORD-TEST0001",
		RestaurantID:  "r1",
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentPending,
		Total:         24.00,
		Items:         domain.OrderItems{{ID: "li1", Quantity: 2}},
	}
}

func TestNotifyReachesAllSinks(t *testing.T) {
	rt := &fakeRealtimeSink{}
	ev := &fakeEventSink{}
	wh := &fakeWebhookSink{configured: true}
	notifier := NewNotifier(rt, ev, wh)

	notifier.Notify(context.Background(), Notification{
		EventType: events.EventTypeOrderCreated,
		Order:     testOrder(),
		NewOrder:  true,
	})

	if len(rt.updates) != 1 {
		t.Errorf("realtime updates = %d, want 1", len(rt.updates))
	}
	if len(ev.events) != 1 {
		t.Errorf("durable events = %d, want 1", len(ev.events))
	}
	if wh.sent != 1 {
		t.Errorf("webhook sends = %d, want 1", wh.sent)
	}

	event := ev.events[0]
	if event.OrderID != "o1" || event.EventType != events.EventTypeOrderCreated || event.ItemCount != 1 {
		t.Errorf("event projection = %+v", event)
	}
}

func TestNotifyWebhookOnlyForNewOrders(t *testing.T) {
	wh := &fakeWebhookSink{configured: true}
	notifier := NewNotifier(&fakeRealtimeSink{}, &fakeEventSink{}, wh)

	notifier.Notify(context.Background(), Notification{
		EventType:      events.EventTypeStatusChanged,
		Order:          testOrder(),
		PreviousStatus: domain.StatusPending,
	})

	if wh.sent != 0 {
		t.Errorf("webhook must only fire on new orders, sent = %d", wh.sent)
	}
}

func TestNotifyWebhookSkippedWhenUnconfigured(t *testing.T) {
	wh := &fakeWebhookSink{configured: false}
	rt := &fakeRealtimeSink{}
	notifier := NewNotifier(rt, &fakeEventSink{}, wh)

	notifier.Notify(context.Background(), Notification{
		EventType: events.EventTypeOrderCreated,
		Order:     testOrder(),
		NewOrder:  true,
	})

	if wh.sent != 0 {
		t.Errorf("unconfigured webhook must not fire, sent = %d", wh.sent)
	}
	if len(rt.updates) != 1 {
		t.Error("other sinks still deliver")
	}
}

func TestNotifySinkFailureIsIsolated(t *testing.T) {
	rt := &fakeRealtimeSink{err: errors.New("redis down")}
	ev := &fakeEventSink{}
	wh := &fakeWebhookSink{configured: true, err: errors.New("502 bad gateway")}
	notifier := NewNotifier(rt, ev, wh)

	// Notify has no error return; a failing sink must not panic or block.
	notifier.Notify(context.Background(), Notification{
		EventType: events.EventTypeOrderCreated,
		Order:     testOrder(),
		NewOrder:  true,
	})

	if len(ev.events) != 1 {
		t.Errorf("healthy sink must still deliver, got %d events", len(ev.events))
	}
}

func TestNotifySlowSinkIsBounded(t *testing.T) {
	wh := &fakeWebhookSink{configured: true, delay: 10 * time.Second}
	notifier := NewNotifier(&fakeRealtimeSink{}, &fakeEventSink{}, wh)
	notifier.sinkTimeout = 50 * time.Millisecond

	start := time.Now()
	notifier.Notify(context.Background(), Notification{
		EventType: events.EventTypeOrderCreated,
		Order:     testOrder(),
		NewOrder:  true,
	})
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Errorf("Notify blocked %v on a slow sink", elapsed)
	}
}

func TestNotifySurvivesCancelledCaller(t *testing.T) {
	rt := &fakeRealtimeSink{}
	notifier := NewNotifier(rt, &fakeEventSink{}, &fakeWebhookSink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // request context already gone when the fan-out runs

	notifier.Notify(ctx, Notification{
		EventType:      events.EventTypeStatusChanged,
		Order:          testOrder(),
		PreviousStatus: domain.StatusPending,
	})

	if len(rt.updates) != 1 {
		t.Error("delivery must not depend on the caller's context")
	}
}
