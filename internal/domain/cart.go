package domain

import "time"

// CartItem is one line of a user's cart. Name, price, category and image are
// copied from the product when the line is added.
type CartItem struct {
	ID         string    `json:"id"`
	UserKey    string    `json:"user_key"`
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`
	Category   string    `json:"category"`
	Image      string    `json:"image"`
	Quantity   int       `json:"quantity"`
	TotalPrice int64     `json:"total_price"`
	AddedAt    time.Time `json:"added_at"`
}

func (c CartItem) OrderItem() OrderItem {
	return OrderItem{
		ProductID:  c.ProductID,
		Name:       c.Name,
		Price:      c.Price,
		Quantity:   c.Quantity,
		TotalPrice: c.TotalPrice,
		Image:      c.Image,
		Category:   c.Category,
	}
}

func LineTotal(price int64, quantity int) int64 {
	return price * int64(quantity)
}
