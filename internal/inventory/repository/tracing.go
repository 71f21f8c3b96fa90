package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tably/resto-core/internal/inventory/domain"
)

var tracer = otel.Tracer("inventory-repository")

// GormInventoryRepositoryWithTracing wraps GormInventoryRepository with tracing
type GormInventoryRepositoryWithTracing struct {
	*GormInventoryRepository
}

// NewGormInventoryRepositoryWithTracing creates a new repository with tracing
func NewGormInventoryRepositoryWithTracing(db *gorm.DB) *GormInventoryRepositoryWithTracing {
	return &GormInventoryRepositoryWithTracing{
		GormInventoryRepository: NewGormInventoryRepository(db),
	}
}

// DeductLine with tracing
func (r *GormInventoryRepositoryWithTracing) DeductLine(ctx context.Context, restaurantID, orderID, actor string, reqs []domain.StockRequirement) ([]domain.IngredientCommit, error) {
	ctx, span := tracer.Start(ctx, "repository.DeductLine",
		trace.WithAttributes(
			attribute.String("restaurant.id", restaurantID),
			attribute.String("order.id", orderID),
			attribute.Int("line.ingredients", len(reqs)),
		),
	)
	defer span.End()

	commits, err := r.GormInventoryRepository.DeductLine(ctx, restaurantID, orderID, actor, reqs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("line.commits", len(commits)))
	return commits, nil
}

// Adjust with tracing
func (r *GormInventoryRepositoryWithTracing) Adjust(ctx context.Context, itemID, reason, actor string, delta float64) (*domain.StockMovement, error) {
	ctx, span := tracer.Start(ctx, "repository.Adjust",
		trace.WithAttributes(
			attribute.String("inventory.item_id", itemID),
			attribute.Float64("adjust.delta", delta),
		),
	)
	defer span.End()

	movement, err := r.GormInventoryRepository.Adjust(ctx, itemID, reason, actor, delta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Float64("inventory.new_balance", movement.NewBalance))
	return movement, nil
}

// FindByID with tracing
func (r *GormInventoryRepositoryWithTracing) FindByID(ctx context.Context, id string) (*domain.InventoryItem, error) {
	ctx, span := tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(attribute.String("inventory.item_id", id)),
	)
	defer span.End()

	item, err := r.GormInventoryRepository.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Float64("inventory.current_stock", item.CurrentStock))
	return item, nil
}
