// Package notify fans committed order transitions out to three independent
// sinks: realtime subscribers, the durable event log and the partner webhook.
// Each sink runs in its own failure boundary; a sink failure is logged and
// swallowed, never surfaced to the caller or the other sinks.
package notify

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tably/resto-core/internal/inventory/deduction"
	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/notify/realtime"
	"github.com/tably/resto-core/internal/order/domain"
	"github.com/tably/resto-core/pkg/logger"
	"github.com/tably/resto-core/pkg/metrics"
)

// DefaultSinkTimeout bounds each sink's delivery attempt so a slow webhook or
// broker cannot delay order-status acknowledgment.
const DefaultSinkTimeout = 5 * time.Second

// RealtimeSink broadcasts updates to live subscribers
type RealtimeSink interface {
	Publish(ctx context.Context, update realtime.Update) error
}

// EventSink publishes durable typed order events
type EventSink interface {
	PublishOrderEvent(ctx context.Context, event events.OrderEvent) error
}

// WebhookSink delivers brand-new orders to the external platform
type WebhookSink interface {
	Configured() bool
	Send(ctx context.Context, order *domain.Order) error
}

// Notification carries the post-transition order snapshot and the previous
// values being compared.
type Notification struct {
	EventType       string
	Order           *domain.Order
	PreviousStatus  domain.OrderStatus
	PreviousPayment domain.PaymentStatus
	NewOrder        bool
	Deduction       *deduction.BatchResult
}

// Notifier joins the three sinks with a bounded timeout per sink
type Notifier struct {
	realtime    RealtimeSink
	events      EventSink
	webhook     WebhookSink
	sinkTimeout time.Duration
}

// NewNotifier creates a new notifier
func NewNotifier(realtimeSink RealtimeSink, eventSink EventSink, webhookSink WebhookSink) *Notifier {
	return &Notifier{
		realtime:    realtimeSink,
		events:      eventSink,
		webhook:     webhookSink,
		sinkTimeout: DefaultSinkTimeout,
	}
}

// Notify dispatches the notification to all sinks concurrently. It never
// returns an error: order state is already committed by the time it runs.
func (n *Notifier) Notify(ctx context.Context, notification Notification) {
	// The transition is committed; sink delivery must not die with the request.
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group

	g.Go(func() error {
		n.deliver(ctx, "realtime", func(ctx context.Context) error {
			return n.realtime.Publish(ctx, n.buildUpdate(notification))
		})
		return nil
	})

	g.Go(func() error {
		n.deliver(ctx, "events", func(ctx context.Context) error {
			return n.events.PublishOrderEvent(ctx, n.buildEvent(notification))
		})
		return nil
	})

	if notification.NewOrder && n.webhook.Configured() {
		g.Go(func() error {
			n.deliver(ctx, "webhook", func(ctx context.Context) error {
				return n.webhook.Send(ctx, notification.Order)
			})
			return nil
		})
	}

	g.Wait()
}

func (n *Notifier) deliver(ctx context.Context, sink string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, n.sinkTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		metrics.SinkFailures.WithLabelValues(sink).Inc()
		logger.Error(ctx).
			Err(err).
			Str("sink", sink).
			Msg("Notification sink delivery failed")
	}
}

func (n *Notifier) buildUpdate(notification Notification) realtime.Update {
	order := notification.Order
	return realtime.Update{
		EventType:      notification.EventType,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		RestaurantID:   order.RestaurantID,
		Status:         string(order.Status),
		PreviousStatus: string(notification.PreviousStatus),
		PaymentStatus:  string(order.PaymentStatus),
		Timestamp:      time.Now(),
	}
}

func (n *Notifier) buildEvent(notification Notification) events.OrderEvent {
	order := notification.Order
	event := events.OrderEvent{
		EventType:             notification.EventType,
		OrderID:               order.ID,
		OrderNumber:           order.OrderNumber,
		RestaurantID:          order.RestaurantID,
		Status:                string(order.Status),
		PreviousStatus:        string(notification.PreviousStatus),
		PaymentStatus:         string(order.PaymentStatus),
		PreviousPaymentStatus: string(notification.PreviousPayment),
		Total:                 order.Total,
		ItemCount:             len(order.Items),
		Timestamp:             time.Now(),
	}
	if notification.Deduction != nil {
		event.DeductionFailures = len(notification.Deduction.FailedLines)
		event.DeductionSkips = len(notification.Deduction.SkippedLines)
	}
	return event
}
