package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/notify/realtime"
	"github.com/tably/resto-core/pkg/logger"
)

// StreamHandler exposes realtime order updates over server-sent events
type StreamHandler struct {
	hub *realtime.Hub
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *realtime.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// StreamRestaurant handles GET /api/orders/stream and pushes every update for
// the actor's restaurant
func (h *StreamHandler) StreamRestaurant(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.FromContext(r.Context())
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
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
	if actor.Role != auth.RoleSystem && actor.RestaurantID != "" && actor.RestaurantID != restaurantID {
		respondJSON(w, http.StatusForbidden, Response{Success: false, Error: "restaurant scope mismatch"})
		return
	}

	h.serve(w, r, realtime.RestaurantChannel(restaurantID))
}

// StreamOrder handles GET /api/orders/{id}/stream for a single order
func (h *StreamHandler) StreamOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.FromContext(r.Context()); err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing actor identity"})
		return
	}

	vars := mux.Vars(r)
	h.serve(w, r, realtime.OrderChannel(vars["id"]))
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, scope string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "streaming unsupported"})
		return
	}

	updates, unsubscribe := h.hub.Subscribe(scope)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.Debug(r.Context()).Str("scope", scope).Msg("Realtime stream opened")

	for {
		select {
		case <-r.Context().Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(update)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", update.EventType, payload)
			flusher.Flush()
		}
	}
}
