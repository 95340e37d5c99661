// Package sales computes the admin sales summary from the full order history.
package sales

import (
	"fmt"
	"sort"
	"time"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

const (
	TopCustomerLimit = 5
	RecentLimit      = 10
)

type ProductSales struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type CustomerSpend struct {
	UserKey    string `json:"user_key"`
	TotalSpent int64  `json:"total_spent"`
	OrderCount int    `json:"order_count"`
}

type Summary struct {
	TotalSales     int64           `json:"total_sales"`
	CompletedCount int             `json:"completed_count"`
	PendingCount   int             `json:"pending_count"`
	CustomerCount  int             `json:"customer_count"`
	BestSeller     *ProductSales   `json:"best_seller"`
	TopCustomers   []CustomerSpend `json:"top_customers"`
	Recent         []domain.Order  `json:"recent"`
}

// Summarize aggregates orders, which are expected oldest first. Revenue, best
// seller and customer ranking only count Completed orders. Ties between
// products or customers go to whichever was seen first.
func Summarize(orders []domain.Order) Summary {
	summary := Summary{TopCustomers: []CustomerSpend{}, Recent: []domain.Order{}}

	customers := make(map[string]bool)
	productIndex := make(map[string]int)
	var products []ProductSales
	spendIndex := make(map[string]int)
	var spend []CustomerSpend

	for _, order := range orders {
		customers[order.UserKey] = true

		switch order.Status {
		case domain.OrderStatusPending:
			summary.PendingCount++
			continue
		case domain.OrderStatusCompleted:
		default:
			continue
		}

		summary.CompletedCount++
		summary.TotalSales += order.TotalAmount

		i, ok := spendIndex[order.UserKey]
		if !ok {
			i = len(spend)
			spendIndex[order.UserKey] = i
			spend = append(spend, CustomerSpend{UserKey: order.UserKey})
		}
		spend[i].TotalSpent += order.TotalAmount
		spend[i].OrderCount++

		for _, item := range order.Items {
			key := item.ProductID
			if key == "" {
				key = item.Name
			}
			j, ok := productIndex[key]
			if !ok {
				j = len(products)
				productIndex[key] = j
				products = append(products, ProductSales{ProductID: item.ProductID, Name: item.Name})
			}
			products[j].Quantity += item.Quantity
		}
	}

	summary.CustomerCount = len(customers)

	for i := range products {
		if summary.BestSeller == nil || products[i].Quantity > summary.BestSeller.Quantity {
			best := products[i]
			summary.BestSeller = &best
		}
	}

	sort.SliceStable(spend, func(a, b int) bool {
		return spend[a].TotalSpent > spend[b].TotalSpent
	})
	if len(spend) > TopCustomerLimit {
		spend = spend[:TopCustomerLimit]
	}
	summary.TopCustomers = append(summary.TopCustomers, spend...)

	for i := len(orders) - 1; i >= 0 && len(summary.Recent) < RecentLimit; i-- {
		summary.Recent = append(summary.Recent, orders[i])
	}

	return summary
}

type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodToday, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Since returns the start of the window ending at now. The zero time means
// no lower bound.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, 0, -30)
	}
	return time.Time{}
}

// Window keeps the orders created at or after since.
func Window(orders []domain.Order, since time.Time) []domain.Order {
	if since.IsZero() {
		return orders
	}
	out := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if !order.CreatedAt.Before(since) {
			out = append(out, order)
		}
	}
	return out
}
