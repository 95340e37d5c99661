package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Closed reports whether the order can no longer be marked received.
func (s OrderStatus) Closed() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type OrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	Quantity   int    `json:"quantity"`
	TotalPrice int64  `json:"total_price"`
	Image      string `json:"image"`
	Category   string `json:"category"`
}

type Order struct {
	ID          string      `json:"id"`
	UserKey     string      `json:"user_key"`
	OrderNumber string      `json:"order_number"`
	Items       []OrderItem `json:"items"`
	TotalAmount int64       `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

func OrderNumber(createdAt time.Time) string {
	return fmt.Sprintf("ORD-%d", createdAt.UnixMilli())
}

// NewOrder builds a pending order from the given cart lines.
func NewOrder(userKey string, lines []CartItem, now time.Time) *Order {
	order := &Order{
		UserKey:     userKey,
		OrderNumber: OrderNumber(now),
		Items:       make([]OrderItem, 0, len(lines)),
		Status:      OrderStatusPending,
		CreatedAt:   now,
	}
	for _, line := range lines {
		order.Items = append(order.Items, line.OrderItem())
		order.TotalAmount += line.TotalPrice
	}
	return order
}
