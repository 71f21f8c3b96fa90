// Package deduction converts sold catalog items into concrete ledger
// movements, tolerating missing recipes and insufficient stock without
// aborting the whole batch.
package deduction

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tably/resto-core/internal/inventory/domain"
	"github.com/tably/resto-core/pkg/logger"
	"github.com/tably/resto-core/pkg/metrics"
)

var tracer = otel.Tracer("stock-deduction")

// Skip reasons
const (
	SkipNoRecipe    = "no-recipe"
	SkipEmptyRecipe = "empty-recipe"
)

// Line is one sold catalog item to deduct for
type Line struct {
	CatalogItemID string `json:"catalog_item_id"`
	QuantitySold  int    `json:"quantity_sold"`
}

// ProcessedLine is a line whose ingredients were all deducted
type ProcessedLine struct {
	CatalogItemID string                    `json:"catalog_item_id"`
	QuantitySold  int                       `json:"quantity_sold"`
	Ingredients   []domain.IngredientCommit `json:"ingredients"`
}

// FailedLine is a line that committed nothing because at least one ingredient
// fell short
type FailedLine struct {
	CatalogItemID string            `json:"catalog_item_id"`
	QuantitySold  int               `json:"quantity_sold"`
	Reason        string            `json:"reason"` // insufficient-stock
	Shortages     []domain.Shortage `json:"shortages"`
}

// SkippedLine is a line with nothing to deduct
type SkippedLine struct {
	CatalogItemID string `json:"catalog_item_id"`
	Reason        string `json:"reason"` // no-recipe | empty-recipe
}

// BatchResult is the structured per-line report of a deduction batch
type BatchResult struct {
	ProcessedLines []ProcessedLine `json:"processed_lines"`
	FailedLines    []FailedLine    `json:"failed_lines"`
	SkippedLines   []SkippedLine   `json:"skipped_lines"`
}

// Success reports whether at least one line committed. Callers must still
// inspect FailedLines and SkippedLines to detect degraded outcomes.
func (r *BatchResult) Success() bool {
	return len(r.ProcessedLines) > 0
}

// Degraded reports whether any line failed or was skipped
func (r *BatchResult) Degraded() bool {
	return len(r.FailedLines) > 0 || len(r.SkippedLines) > 0
}

// Engine resolves recipes and commits per-line deductions against the ledger
type Engine struct {
	recipes   domain.RecipeRepository
	inventory domain.InventoryRepository
}

// NewEngine creates a new deduction engine
func NewEngine(recipes domain.RecipeRepository, inventory domain.InventoryRepository) *Engine {
	return &Engine{recipes: recipes, inventory: inventory}
}

// Deduct processes each line independently. Business-rule failures (missing
// recipe, insufficient stock) are reported in the result, never raised.
// Infrastructure failures abort the remaining lines and are returned as an
// error; lines already committed stay committed.
func (e *Engine) Deduct(ctx context.Context, restaurantID, orderID string, lines []Line, actor string) (*BatchResult, error) {
	ctx, span := tracer.Start(ctx, "deduction.Deduct",
		trace.WithAttributes(
			attribute.String("restaurant.id", restaurantID),
			attribute.String("order.id", orderID),
			attribute.Int("batch.lines", len(lines)),
		),
	)
	defer span.End()

	result := &BatchResult{}

	for _, line := range lines {
		recipe, err := e.recipes.FindActive(ctx, restaurantID, line.CatalogItemID)
		if errors.Is(err, domain.ErrRecipeNotFound) {
			result.SkippedLines = append(result.SkippedLines, SkippedLine{
				CatalogItemID: line.CatalogItemID,
				Reason:        SkipNoRecipe,
			})
			metrics.DeductionLines.WithLabelValues("skipped").Inc()
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "recipe lookup failed")
			return result, &domain.StorageError{Op: "resolve recipe", Err: err}
		}

		if len(recipe.Ingredients) == 0 {
			result.SkippedLines = append(result.SkippedLines, SkippedLine{
				CatalogItemID: line.CatalogItemID,
				Reason:        SkipEmptyRecipe,
			})
			metrics.DeductionLines.WithLabelValues("skipped").Inc()
			continue
		}

		reqs := requirements(recipe, line.QuantitySold)

		commits, err := e.inventory.DeductLine(ctx, restaurantID, orderID, actor, reqs)
		if err != nil {
			var insufficient *domain.InsufficientStockError
			if errors.As(err, &insufficient) {
				result.FailedLines = append(result.FailedLines, FailedLine{
					CatalogItemID: line.CatalogItemID,
					QuantitySold:  line.QuantitySold,
					Reason:        "insufficient-stock",
					Shortages:     insufficient.Shortages,
				})
				metrics.DeductionLines.WithLabelValues("failed").Inc()
				logger.Warn(ctx).
					Str("order_id", orderID).
					Str("catalog_item_id", line.CatalogItemID).
					Int("shortages", len(insufficient.Shortages)).
					Msg("Deduction line failed: insufficient stock")
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "deduction commit failed")
			return result, fmt.Errorf("deduct line %s: %w", line.CatalogItemID, err)
		}

		result.ProcessedLines = append(result.ProcessedLines, ProcessedLine{
			CatalogItemID: line.CatalogItemID,
			QuantitySold:  line.QuantitySold,
			Ingredients:   commits,
		})
		metrics.DeductionLines.WithLabelValues("committed").Inc()
	}

	span.SetAttributes(
		attribute.Int("batch.committed", len(result.ProcessedLines)),
		attribute.Int("batch.failed", len(result.FailedLines)),
		attribute.Int("batch.skipped", len(result.SkippedLines)),
	)

	return result, nil
}

// CheckAvailability is the read-only variant of Deduct usable before checkout
// to pre-validate a cart. It mutates nothing.
func (e *Engine) CheckAvailability(ctx context.Context, restaurantID string, lines []Line) (*BatchResult, error) {
	ctx, span := tracer.Start(ctx, "deduction.CheckAvailability",
		trace.WithAttributes(
			attribute.String("restaurant.id", restaurantID),
			attribute.Int("batch.lines", len(lines)),
		),
	)
	defer span.End()

	result := &BatchResult{}

	for _, line := range lines {
		recipe, err := e.recipes.FindActive(ctx, restaurantID, line.CatalogItemID)
		if errors.Is(err, domain.ErrRecipeNotFound) {
			result.SkippedLines = append(result.SkippedLines, SkippedLine{
				CatalogItemID: line.CatalogItemID,
				Reason:        SkipNoRecipe,
			})
			continue
		}
		if err != nil {
			return result, &domain.StorageError{Op: "resolve recipe", Err: err}
		}

		if len(recipe.Ingredients) == 0 {
			result.SkippedLines = append(result.SkippedLines, SkippedLine{
				CatalogItemID: line.CatalogItemID,
				Reason:        SkipEmptyRecipe,
			})
			continue
		}

		reqs := requirements(recipe, line.QuantitySold)

		ids := make([]string, 0, len(reqs))
		for _, req := range reqs {
			ids = append(ids, req.InventoryItemID)
		}
		items, err := e.inventory.FindByIDs(ctx, restaurantID, ids)
		if err != nil {
			return result, &domain.StorageError{Op: "load inventory", Err: err}
		}
		byID := make(map[string]*domain.InventoryItem, len(items))
		for i := range items {
			byID[items[i].ID] = &items[i]
		}

		var shortages []domain.Shortage
		for _, req := range reqs {
			item, ok := byID[req.InventoryItemID]
			if !ok {
				shortages = append(shortages, domain.Shortage{
					InventoryItemID: req.InventoryItemID,
					Name:            req.InventoryItemID,
					Required:        req.Quantity,
					Available:       0,
				})
				continue
			}
			if item.CurrentStock < req.Quantity {
				shortages = append(shortages, domain.Shortage{
					InventoryItemID: item.ID,
					Name:            item.Name,
					Unit:            item.Unit,
					Required:        req.Quantity,
					Available:       item.CurrentStock,
				})
			}
		}

		if len(shortages) > 0 {
			result.FailedLines = append(result.FailedLines, FailedLine{
				CatalogItemID: line.CatalogItemID,
				QuantitySold:  line.QuantitySold,
				Reason:        "insufficient-stock",
				Shortages:     shortages,
			})
			continue
		}

		result.ProcessedLines = append(result.ProcessedLines, ProcessedLine{
			CatalogItemID: line.CatalogItemID,
			QuantitySold:  line.QuantitySold,
		})
	}

	return result, nil
}

func requirements(recipe *domain.Recipe, quantitySold int) []domain.StockRequirement {
	reqs := make([]domain.StockRequirement, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		reqs = append(reqs, domain.StockRequirement{
			InventoryItemID: ing.InventoryItemID,
			Quantity:        ing.QuantityPerServing * float64(quantitySold),
		})
	}
	return reqs
}
