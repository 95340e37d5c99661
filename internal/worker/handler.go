// Package worker reacts to placed orders: it warns the shop when an ordered
// product is running low and mails the customer a receipt.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

// ProductGetter reads current product state. catalog.Client implements it.
type ProductGetter interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Config struct {
	EmailServiceURL   string
	AlertEmail        string
	LowStockThreshold int
}

type ReceiptHandler struct {
	cfg        Config
	catalog    ProductGetter
	httpClient *http.Client
	logger     *slog.Logger
}

func NewReceiptHandler(cfg Config, catalog ProductGetter, client *http.Client, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		cfg:        cfg,
		catalog:    catalog,
		httpClient: client,
		logger:     logger,
	}
}

type emailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Handle processes one order.placed payload. Malformed payloads are dropped,
// email failures are returned so the message is redelivered.
func (h *ReceiptHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed order placed event", "error", err)
		return nil
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "order_number", event.OrderNumber)

	// Alerts go first so a failed alert redelivers the event before the
	// customer has been mailed.
	if err := h.checkStock(ctx, event); err != nil {
		return err
	}

	if event.Email == "" {
		h.logger.Warn("order placed event has no email, skipping receipt", "order_id", event.OrderID)
	} else if err := h.send(ctx, receipt(event)); err != nil {
		h.logger.Error("failed to send receipt", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send receipt: %w", err)
	}

	h.logger.Info("order placed event processed", "order_id", event.OrderID)
	return nil
}

func (h *ReceiptHandler) checkStock(ctx context.Context, event domain.OrderPlacedEvent) error {
	if h.cfg.AlertEmail == "" {
		return nil
	}

	seen := make(map[string]bool, len(event.Items))
	for _, item := range event.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true

		product, err := h.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			h.logger.Warn("failed to read product stock", "error", err, "product_id", item.ProductID)
			continue
		}
		if product.Stock > h.cfg.LowStockThreshold {
			continue
		}

		if err := h.send(ctx, lowStockAlert(h.cfg.AlertEmail, product)); err != nil {
			h.logger.Error("failed to send low stock alert", "error", err, "product_id", product.ID)
			return fmt.Errorf("send low stock alert: %w", err)
		}
		h.logger.Info("low stock alert sent", "product_id", product.ID, "stock", product.Stock)
	}
	return nil
}

func receipt(event domain.OrderPlacedEvent) emailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\n\n", event.OrderNumber)
	for _, item := range event.Items {
		fmt.Fprintf(&b, "%d x %s  %s\n", item.Quantity, item.Name, formatCents(item.TotalPrice))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", formatCents(event.TotalAmount))

	return emailMessage{
		To:      event.Email,
		Subject: "Order Receipt: " + event.OrderNumber,
		Body:    b.String(),
	}
}

func lowStockAlert(to string, p *domain.Product) emailMessage {
	return emailMessage{
		To:      to,
		Subject: "Low stock: " + p.Name,
		Body:    fmt.Sprintf("%s (%s) has %d left in stock.", p.Name, p.ID, p.Stock),
	}
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func (h *ReceiptHandler) send(ctx context.Context, msg emailMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.EmailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
