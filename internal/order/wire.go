//go:build wireinject
// +build wireinject

package order

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tably/resto-core/internal/inventory/deduction"
	"github.com/tably/resto-core/internal/notify"
	"github.com/tably/resto-core/internal/notify/realtime"
	"github.com/tably/resto-core/internal/order/delivery/http"
	"github.com/tably/resto-core/internal/order/domain"
	"github.com/tably/resto-core/internal/order/repository"
	"github.com/tably/resto-core/internal/order/usecase/command"
	"github.com/tably/resto-core/internal/order/usecase/query"
)

// ProvideOrderRepository provides the traced order repository
func ProvideOrderRepository(db *gorm.DB) domain.OrderRepository {
	return repository.NewGormOrderRepositoryWithTracing(db)
}

// ProvideNotifier adapts the fan-out notifier to the command-side contract
func ProvideNotifier(notifier *notify.Notifier) command.Notifier {
	return notifier
}

// ProvideStockDeductor adapts the deduction engine to the command-side contract
func ProvideStockDeductor(engine *deduction.Engine) command.StockDeductor {
	return engine
}

// Command Handlers Providers
func ProvideCreateOrderHandler(repo domain.OrderRepository, notifier command.Notifier) *command.CreateOrderHandler {
	return command.NewCreateOrderHandler(repo, notifier)
}

func ProvideTransitionStatusHandler(repo domain.OrderRepository, deductor command.StockDeductor, notifier command.Notifier) *command.TransitionStatusHandler {
	return command.NewTransitionStatusHandler(repo, deductor, notifier)
}

func ProvideUpdatePaymentHandler(repo domain.OrderRepository, notifier command.Notifier) *command.UpdatePaymentHandler {
	return command.NewUpdatePaymentHandler(repo, notifier)
}

func ProvideUpdateDetailsHandler(repo domain.OrderRepository, notifier command.Notifier) *command.UpdateDetailsHandler {
	return command.NewUpdateDetailsHandler(repo, notifier)
}

func ProvideUpdateItemPrepHandler(repo domain.OrderRepository, notifier command.Notifier) *command.UpdateItemPrepHandler {
	return command.NewUpdateItemPrepHandler(repo, notifier)
}

// Query Handlers Providers
func ProvideGetOrderHandler(repo domain.OrderRepository) *query.GetOrderHandler {
	return query.NewGetOrderHandler(repo)
}

func ProvideListOrdersHandler(repo domain.OrderRepository) *query.ListOrdersHandler {
	return query.NewListOrdersHandler(repo)
}

// ProvideStreamHandler provides the SSE stream handler
func ProvideStreamHandler(hub *realtime.Hub) *http.StreamHandler {
	return http.NewStreamHandler(hub)
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideOrderRepository,
)

var CommandHandlerSet = wire.NewSet(
	ProvideCreateOrderHandler,
	ProvideTransitionStatusHandler,
	ProvideUpdatePaymentHandler,
	ProvideUpdateDetailsHandler,
	ProvideUpdateItemPrepHandler,
)

var QueryHandlerSet = wire.NewSet(
	ProvideGetOrderHandler,
	ProvideListOrdersHandler,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	ProvideNotifier,
	ProvideStockDeductor,
	CommandHandlerSet,
	QueryHandlerSet,
	ProvideStreamHandler,
)

// InitializeHTTPHandler initializes the order HTTP handler with all dependencies
func InitializeHTTPHandler(db *gorm.DB, notifier *notify.Notifier, engine *deduction.Engine, hub *realtime.Hub) (*http.OrderHandler, error) {
	wire.Build(
		AllHandlersSet,
		http.NewOrderHandler,
	)
	return nil, nil
}
