package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/order/domain"
	"github.com/tably/resto-core/internal/order/usecase/command"
	"github.com/tably/resto-core/internal/order/usecase/query"
	"github.com/tably/resto-core/pkg/logger"
)

// OrderHandler handles HTTP requests for orders using CQRS pattern
type OrderHandler struct {
	createHandler     *command.CreateOrderHandler
	transitionHandler *command.TransitionStatusHandler
	paymentHandler    *command.UpdatePaymentHandler
	detailsHandler    *command.UpdateDetailsHandler
	itemPrepHandler   *command.UpdateItemPrepHandler

	getHandler  *query.GetOrderHandler
	listHandler *query.ListOrdersHandler

	stream *StreamHandler
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	createHandler *command.CreateOrderHandler,
	transitionHandler *command.TransitionStatusHandler,
	paymentHandler *command.UpdatePaymentHandler,
	detailsHandler *command.UpdateDetailsHandler,
	itemPrepHandler *command.UpdateItemPrepHandler,
	getHandler *query.GetOrderHandler,
	listHandler *query.ListOrdersHandler,
	stream *StreamHandler,
) *OrderHandler {
	return &OrderHandler{
		createHandler:     createHandler,
		transitionHandler: transitionHandler,
		paymentHandler:    paymentHandler,
		detailsHandler:    detailsHandler,
		itemPrepHandler:   itemPrepHandler,
		getHandler:        getHandler,
		listHandler:       listHandler,
		stream:            stream,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return
	}

	var req struct {
		RestaurantID        string                   `json:"restaurant_id"`
		TableID             *string                  `json:"table_id"`
		CustomerUserID      string                   `json:"customer_user_id"`
		CustomerGuestToken  string                   `json:"customer_guest_token"`
		Items               []command.OrderItemInput `json:"items"`
		Tip                 float64                  `json:"tip"`
		LoyaltyDiscount     float64                  `json:"loyalty_discount"`
		SpecialInstructions string                   `json:"special_instructions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	order, err := h.createHandler.Handle(r.Context(), command.CreateOrderCommand{
		RestaurantID: req.RestaurantID,
		TableID:      req.TableID,
		Customer: domain.CustomerRef{
			UserID:     req.CustomerUserID,
			GuestToken: req.CustomerGuestToken,
		},
		Items:               req.Items,
		Tip:                 req.Tip,
		LoyaltyDiscount:     req.LoyaltyDiscount,
		SpecialInstructions: req.SpecialInstructions,
		Actor:               actor,
	})
	if err != nil {
		respondError(w, r, err, "Failed to create order")
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Order created successfully",
		Data:    order,
	})
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	vars := mux.Vars(r)

	order, err := h.getHandler.Handle(r.Context(), query.GetOrderQuery{
		OrderID: vars["id"],
		Actor:   actor,
	})
	if err != nil {
		respondError(w, r, err, "Failed to get order")
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: order})
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		restaurantID = actor.RestaurantID
	}
	if actor.Role != auth.RoleSystem && actor.RestaurantID != "" && actor.RestaurantID != restaurantID {
		respondJSON(w, http.StatusForbidden, Response{Success: false, Error: "restaurant scope mismatch"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.listHandler.Handle(r.Context(), query.ListOrdersQuery{
		RestaurantID: restaurantID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondError(w, r, err, "Failed to list orders")
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: orders})
}

// TransitionStatus handles PATCH /api/orders/{id}/status
func (h *OrderHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return
	}
	vars := mux.Vars(r)

	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	result, err := h.transitionHandler.Handle(r.Context(), command.TransitionStatusCommand{
		OrderID: vars["id"],
		Status:  req.Status,
		Reason:  req.Reason,
		Actor:   actor,
	})
	if err != nil {
		respondError(w, r, err, "Failed to transition order")
		return
	}

	// A completed order with deduction issues still reports success for the
	// order itself; the failure/skip list rides along for follow-up tooling.
	message := "Order status updated"
	if result.Deduction != nil && result.Deduction.Degraded() {
		message = "Order status updated with inventory discrepancies"
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    result,
	})
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return
	}
	vars := mux.Vars(r)

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	result, err := h.transitionHandler.Handle(r.Context(), command.TransitionStatusCommand{
		OrderID: vars["id"],
		Status:  string(domain.StatusCancelled),
		Reason:  req.Reason,
		Actor:   actor,
	})
	if err != nil {
		respondError(w, r, err, "Failed to cancel order")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Order cancelled",
		Data:    result,
	})
}

// UpdatePaymentStatus handles PATCH /api/orders/{id}/payment-status
func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return
	}
	vars := mux.Vars(r)

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	order, err := h.paymentHandler.Handle(r.Context(), command.UpdatePaymentCommand{
		OrderID: vars["id"],
		Status:  req.Status,
		Actor:   actor,
	})
	if err != nil {
		respondError(w, r, err, "Failed to update payment status")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Payment status updated",
		Data:    order,
	})
}

// UpdateDetails handles PATCH /api/orders/{id}
func (h *OrderHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return
	}
	vars := mux.Vars(r)

	var req struct {
		Items               []command.OrderItemInput `json:"items"`
		SpecialInstructions *string                  `json:"special_instructions"`
		Tip                 *float64                 `json:"tip"`
		LoyaltyDiscount     *float64                 `json:"loyalty_discount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	order, err := h.detailsHandler.Handle(r.Context(), command.UpdateDetailsCommand{
		OrderID:             vars["id"],
		Items:               req.Items,
		SpecialInstructions: req.SpecialInstructions,
		Tip:                 req.Tip,
		LoyaltyDiscount:     req.LoyaltyDiscount,
		Actor:               actor,
	})
	if err != nil {
		respondError(w, r, err, "Failed to update order")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Order updated",
		Data:    order,
	})
}

// UpdateItemPrepStatus handles PATCH /api/orders/{id}/items/{item_id}/prep-status
func (h *OrderHandler) UpdateItemPrepStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return
	}
	vars := mux.Vars(r)

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	order, err := h.itemPrepHandler.Handle(r.Context(), command.UpdateItemPrepCommand{
		OrderID: vars["id"],
		ItemID:  vars["item_id"],
		Status:  req.Status,
		Actor:   actor,
	})
	if err != nil {
		respondError(w, r, err, "Failed to update item preparation status")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Item preparation status updated",
		Data:    order,
	})
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/orders", h.ListOrders).Methods("GET")
	router.HandleFunc("/api/orders", h.CreateOrder).Methods("POST")
	router.HandleFunc("/api/orders/stream", h.stream.StreamRestaurant).Methods("GET")
	router.HandleFunc("/api/orders/{id}", h.GetOrder).Methods("GET")
	router.HandleFunc("/api/orders/{id}", h.UpdateDetails).Methods("PATCH")
	router.HandleFunc("/api/orders/{id}/status", h.TransitionStatus).Methods("PATCH")
	router.HandleFunc("/api/orders/{id}/payment-status", h.UpdatePaymentStatus).Methods("PATCH")
	router.HandleFunc("/api/orders/{id}/cancel", h.CancelOrder).Methods("POST")
	router.HandleFunc("/api/orders/{id}/items/{item_id}/prep-status", h.UpdateItemPrepStatus).Methods("PATCH")
	router.HandleFunc("/api/orders/{id}/stream", h.stream.StreamOrder).Methods("GET")
}

// RegisterHealthCheck registers health check endpoint
func (h *OrderHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Service is healthy",
		})
	}).Methods("GET")
}

// respondError maps domain errors onto HTTP statuses
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := http.StatusBadRequest

	var invalidStatus *domain.InvalidStatusError
	var illegal *domain.IllegalTransitionError
	var illegalPayment *domain.IllegalPaymentTransitionError

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTenantMismatch):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrTransitionConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrIllegalState):
		status = http.StatusConflict
	case errors.As(err, &illegal), errors.As(err, &illegalPayment):
		status = http.StatusConflict
	case errors.As(err, &invalidStatus):
		status = http.StatusBadRequest
	}

	if status >= 500 {
		logger.Error(r.Context()).Err(err).Msg(fallback)
	} else {
		logger.Warn(r.Context()).Err(err).Msg(fallback)
	}

	respondJSON(w, status, Response{Success: false, Error: err.Error()})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
