package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tably/resto-core/internal/order/domain"
)

var tracer = otel.Tracer("order-repository")

// GormOrderRepositoryWithTracing wraps GormOrderRepository with tracing
type GormOrderRepositoryWithTracing struct {
	*GormOrderRepository
}

// NewGormOrderRepositoryWithTracing creates a new repository with tracing
func NewGormOrderRepositoryWithTracing(db *gorm.DB) *GormOrderRepositoryWithTracing {
	return &GormOrderRepositoryWithTracing{
		GormOrderRepository: NewGormOrderRepository(db),
	}
}

// Create with tracing
func (r *GormOrderRepositoryWithTracing) Create(ctx context.Context, order *domain.Order) error {
	ctx, span := tracer.Start(ctx, "repository.Create",
		trace.WithAttributes(
			attribute.String("order.restaurant_id", order.RestaurantID),
			attribute.Int("order.items", len(order.Items)),
		),
	)
	defer span.End()

	if err := r.GormOrderRepository.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	return nil
}

// FindByID with tracing
func (r *GormOrderRepositoryWithTracing) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	order, err := r.GormOrderRepository.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("order.status", string(order.Status)))
	return order, nil
}

// TransitionStatus with tracing
func (r *GormOrderRepositoryWithTracing) TransitionStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	ctx, span := tracer.Start(ctx, "repository.TransitionStatus",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("transition.from", string(from)),
			attribute.String("transition.to", string(order.Status)),
		),
	)
	defer span.End()

	if err := r.GormOrderRepository.TransitionStatus(ctx, order, from); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// TransitionPayment with tracing
func (r *GormOrderRepositoryWithTracing) TransitionPayment(ctx context.Context, order *domain.Order, from domain.PaymentStatus) error {
	ctx, span := tracer.Start(ctx, "repository.TransitionPayment",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("transition.from", string(from)),
			attribute.String("transition.to", string(order.PaymentStatus)),
		),
	)
	defer span.End()

	if err := r.GormOrderRepository.TransitionPayment(ctx, order, from); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
