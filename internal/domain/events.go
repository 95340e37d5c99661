package domain

import "time"

type OrderPlacedEvent struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserKey     string      `json:"user_key"`
	Email       string      `json:"email"`
	Items       []OrderItem `json:"items"`
	TotalAmount int64       `json:"total_amount"`
	Timestamp   time.Time   `json:"timestamp"`
}

func NewOrderPlacedEvent(order *Order, email string) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserKey:     order.UserKey,
		Email:       email,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
		Timestamp:   order.CreatedAt,
	}
}
