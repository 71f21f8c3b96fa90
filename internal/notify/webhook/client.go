// Package webhook delivers brand-new orders to an external delivery platform.
// Delivery is single-attempt with a bounded timeout; retry policy, if any,
// belongs to the partner integration, not the core.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/tably/resto-core/internal/order/domain"
	"github.com/tably/resto-core/pkg/logger"
)

// DefaultTimeout bounds a single delivery attempt
const DefaultTimeout = 5 * time.Second

// Config holds the partner integration settings. An empty URL means the
// integration is not configured and deliveries are skipped.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// PartnerItem is one order line in the partner schema
type PartnerItem struct {
	ExternalID     string `json:"external_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	SubtotalMinor  int64  `json:"subtotal_minor"`
}

// PartnerCustomer identifies the customer in the partner schema
type PartnerCustomer struct {
	UserID     string `json:"user_id,omitempty"`
	GuestToken string `json:"guest_token,omitempty"`
}

// PartnerOrder is the outbound payload. All charges are expressed in minor
// currency units.
type PartnerOrder struct {
	OrderID            string          `json:"order_id"`
	OrderNumber        string          `json:"order_number"`
	RestaurantID       string          `json:"restaurant_id"`
	Customer           PartnerCustomer `json:"customer"`
	Items              []PartnerItem   `json:"items"`
	SubtotalMinor      int64           `json:"subtotal_minor"`
	ServiceChargeMinor int64           `json:"service_charge_minor"`
	TipMinor           int64           `json:"tip_minor"`
	DiscountMinor      int64           `json:"discount_minor"`
	TotalMinor         int64           `json:"total_minor"`
	PlacedAt           time.Time       `json:"placed_at"`
}

// Client posts new orders to the configured partner endpoint
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new webhook client
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Configured reports whether the partner integration is set up
func (c *Client) Configured() bool {
	return c.config.URL != ""
}

// Send transforms the order into the partner schema and delivers it
func (c *Client) Send(ctx context.Context, order *domain.Order) error {
	if !c.Configured() {
		return nil
	}

	payload := Transform(order)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal partner order: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery rejected: status %d", resp.StatusCode)
	}

	logger.Info(ctx).
		Str("order_id", order.ID).
		Str("url", c.config.URL).
		Int("status", resp.StatusCode).
		Msg("Order delivered to partner webhook")

	return nil
}

// Transform converts an order into the partner schema
func Transform(order *domain.Order) PartnerOrder {
	items := make([]PartnerItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, PartnerItem{
			ExternalID:     item.CatalogItemID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceMinor: minorUnits(item.UnitPrice),
			SubtotalMinor:  minorUnits(item.Subtotal),
		})
	}

	return PartnerOrder{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		RestaurantID: order.RestaurantID,
		Customer: PartnerCustomer{
			UserID:     order.Customer.UserID,
			GuestToken: order.Customer.GuestToken,
		},
		Items:              items,
		SubtotalMinor:      minorUnits(order.Subtotal),
		ServiceChargeMinor: minorUnits(order.ServiceCharge),
		TipMinor:           minorUnits(order.Tip),
		DiscountMinor:      minorUnits(order.LoyaltyDiscount),
		TotalMinor:         minorUnits(order.Total),
		PlacedAt:           order.CreatedAt,
	}
}

func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
