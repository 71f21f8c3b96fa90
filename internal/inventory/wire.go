//go:build wireinject
// +build wireinject

package inventory

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tably/resto-core/internal/inventory/deduction"
	"github.com/tably/resto-core/internal/inventory/delivery/http"
	"github.com/tably/resto-core/internal/inventory/domain"
	"github.com/tably/resto-core/internal/inventory/repository"
)

// ProvideInventoryRepository provides the traced inventory repository
func ProvideInventoryRepository(db *gorm.DB) domain.InventoryRepository {
	return repository.NewGormInventoryRepositoryWithTracing(db)
}

// ProvideRecipeRepository provides the recipe repository
func ProvideRecipeRepository(db *gorm.DB) domain.RecipeRepository {
	return repository.NewGormRecipeRepository(db)
}

// ProvideEngine provides the stock deduction engine
func ProvideEngine(recipes domain.RecipeRepository, inventory domain.InventoryRepository) *deduction.Engine {
	return deduction.NewEngine(recipes, inventory)
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideInventoryRepository,
	ProvideRecipeRepository,
)

var EngineSet = wire.NewSet(
	RepositorySet,
	ProvideEngine,
)

// InitializeEngine initializes the deduction engine with its repositories
func InitializeEngine(db *gorm.DB) (*deduction.Engine, error) {
	wire.Build(EngineSet)
	return nil, nil
}

// InitializeHTTPHandler initializes the inventory HTTP handler with all dependencies
func InitializeHTTPHandler(db *gorm.DB) (*http.InventoryHandler, error) {
	wire.Build(
		EngineSet,
		http.NewInventoryHandler,
	)
	return nil, nil
}
