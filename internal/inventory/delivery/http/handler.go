package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/inventory/deduction"
	"github.com/tably/resto-core/internal/inventory/domain"
	"github.com/tably/resto-core/pkg/logger"
)

// InventoryHandler handles HTTP requests for inventory and recipes
type InventoryHandler struct {
	inventory domain.InventoryRepository
	recipes   domain.RecipeRepository
	engine    *deduction.Engine
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(
	inventory domain.InventoryRepository,
	recipes domain.RecipeRepository,
	engine *deduction.Engine,
) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, recipes: recipes, engine: engine}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ListItems handles GET /api/inventory
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	actor, err := h.staffActor(w, r)
	if err != nil {
		return
	}

	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		restaurantID = actor.RestaurantID
	}
	if restaurantID == "" {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "restaurant_id is required"})
		return
	}
	if !h.checkScope(w, actor, restaurantID) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	items, err := h.inventory.FindByRestaurant(r.Context(), restaurantID, limit, offset)
	if err != nil {
		respondError(w, r, err, "Failed to list inventory")
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: items})
}

// GetItem handles GET /api/inventory/{id}
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	actor, err := h.staffActor(w, r)
	if err != nil {
		return
	}
	vars := mux.Vars(r)

	item, err := h.inventory.FindByID(r.Context(), vars["id"])
	if err != nil {
		respondError(w, r, err, "Failed to get inventory item")
		return
	}
	if !h.checkScope(w, actor, item.RestaurantID) {
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: item})
}

// ListLowStock handles GET /api/inventory/low-stock
func (h *InventoryHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	actor, err := h.staffActor(w, r)
	if err != nil {
		return
	}

	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		restaurantID = actor.RestaurantID
	}
	if restaurantID == "" {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "restaurant_id is required"})
		return
	}
	if !h.checkScope(w, actor, restaurantID) {
		return
	}

	items, err := h.inventory.FindLowStock(r.Context(), restaurantID)
	if err != nil {
		respondError(w, r, err, "Failed to list low stock items")
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: items})
}

// ListMovements handles GET /api/inventory/{id}/movements
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	actor, err := h.staffActor(w, r)
	if err != nil {
		return
	}
	vars := mux.Vars(r)

	item, err := h.inventory.FindByID(r.Context(), vars["id"])
	if err != nil {
		respondError(w, r, err, "Failed to get inventory item")
		return
	}
	if !h.checkScope(w, actor, item.RestaurantID) {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	movements, err := h.inventory.MovementsByItem(r.Context(), vars["id"], limit, offset)
	if err != nil {
		respondError(w, r, err, "Failed to list stock movements")
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: movements})
}

// AdjustItem handles POST /api/inventory/{id}/adjust
func (h *InventoryHandler) AdjustItem(w http.ResponseWriter, r *http.Request) {
	actor, err := h.staffActor(w, r)
	if err != nil {
		return
	}
	vars := mux.Vars(r)

	var req struct {
		Delta  float64 `json:"delta"`
		Reason string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.Delta == 0 {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "delta must be non-zero"})
		return
	}
	if req.Reason == "" {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "reason is required"})
		return
	}

	item, err := h.inventory.FindByID(r.Context(), vars["id"])
	if err != nil {
		respondError(w, r, err, "Failed to get inventory item")
		return
	}
	if !h.checkScope(w, actor, item.RestaurantID) {
		return
	}

	movement, err := h.inventory.Adjust(r.Context(), vars["id"], req.Reason, actor.Label(), req.Delta)
	if err != nil {
		respondError(w, r, err, "Failed to adjust stock")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Stock adjusted",
		Data:    movement,
	})
}

// Deduct handles POST /api/inventory/deduct, the trigger used when an order
// completes. It always returns 200 with the per-line batch report; only
// infrastructure failures surface as errors.
func (h *InventoryHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	actor, err := h.staffActor(w, r)
	if err != nil {
		return
	}

	var req struct {
		RestaurantID string           `json:"restaurant_id"`
		OrderID      string           `json:"order_id"`
		Lines        []deduction.Line `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.RestaurantID == "" || req.OrderID == "" || len(req.Lines) == 0 {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "restaurant_id, order_id and lines are required"})
		return
	}
	if !h.checkScope(w, actor, req.RestaurantID) {
		return
	}

	result, err := h.engine.Deduct(r.Context(), req.RestaurantID, req.OrderID, req.Lines, actor.Label())
	if err != nil {
		logger.Error(r.Context()).Err(err).
			Str("order_id", req.OrderID).
			Int("committed", len(result.ProcessedLines)).
			Msg("Deduction batch aborted")
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   "deduction aborted: " + err.Error(),
			Data:    result,
		})
		return
	}

	message := "Deduction completed"
	if result.Degraded() {
		message = "Deduction completed with discrepancies"
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: result})
}

// CheckAvailability handles POST /api/inventory/availability
func (h *InventoryHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return
	}

	var req struct {
		RestaurantID string           `json:"restaurant_id"`
		Lines        []deduction.Line `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.RestaurantID == "" {
		req.RestaurantID = actor.RestaurantID
	}
	if req.RestaurantID == "" || len(req.Lines) == 0 {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "restaurant_id and lines are required"})
		return
	}
	if !h.checkScope(w, actor, req.RestaurantID) {
		return
	}

	result, err := h.engine.CheckAvailability(r.Context(), req.RestaurantID, req.Lines)
	if err != nil {
		respondError(w, r, err, "Failed to check availability")
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// GetRecipe handles GET /api/recipes/{catalog_item_id}
func (h *InventoryHandler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	actor, err := h.staffActor(w, r)
	if err != nil {
		return
	}
	vars := mux.Vars(r)

	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		restaurantID = actor.RestaurantID
	}
	if restaurantID == "" {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "restaurant_id is required"})
		return
	}
	if !h.checkScope(w, actor, restaurantID) {
		return
	}

	recipe, err := h.recipes.FindActive(r.Context(), restaurantID, vars["catalog_item_id"])
	if err != nil {
		respondError(w, r, err, "Failed to get recipe")
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: recipe})
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/inventory", h.ListItems).Methods("GET")
	router.HandleFunc("/api/inventory/low-stock", h.ListLowStock).Methods("GET")
	router.HandleFunc("/api/inventory/deduct", h.Deduct).Methods("POST")
	router.HandleFunc("/api/inventory/availability", h.CheckAvailability).Methods("POST")
	router.HandleFunc("/api/inventory/{id}", h.GetItem).Methods("GET")
	router.HandleFunc("/api/inventory/{id}/movements", h.ListMovements).Methods("GET")
	router.HandleFunc("/api/inventory/{id}/adjust", h.AdjustItem).Methods("POST")
	router.HandleFunc("/api/recipes/{catalog_item_id}", h.GetRecipe).Methods("GET")
}

// staffActor resolves the request actor and rejects guests. Inventory is a
// back-of-house surface.
func (h *InventoryHandler) staffActor(w http.ResponseWriter, r *http.Request) (auth.Actor, error) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return auth.Actor{}, err
	}
	if actor.IsGuest() {
		respondJSON(w, http.StatusForbidden, Response{Success: false, Error: "staff access required"})
		return auth.Actor{}, errors.New("guest actor")
	}
	return actor, nil
}

// checkScope verifies the actor may act on the target restaurant. System
// actors and actors without a restaurant binding pass.
func (h *InventoryHandler) checkScope(w http.ResponseWriter, actor auth.Actor, restaurantID string) bool {
	if actor.Role != auth.RoleSystem && actor.RestaurantID != "" && actor.RestaurantID != restaurantID {
		respondJSON(w, http.StatusForbidden, Response{Success: false, Error: "restaurant scope mismatch"})
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP statuses
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := http.StatusInternalServerError

	var insufficient *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrRecipeNotFound):
		status = http.StatusNotFound
	case errors.As(err, &insufficient):
		status = http.StatusConflict
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
