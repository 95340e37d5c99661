package catalog

import (
	"strings"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

// Filter returns the products whose name or category contains query,
// ignoring case and surrounding whitespace, in their input order. An
// empty query matches everything.
func Filter(products []domain.Product, query string) []domain.Product {
	query = strings.ToLower(strings.TrimSpace(query))

	result := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if query == "" ||
			strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Category), query) {
			result = append(result, p)
		}
	}
	return result
}

// InCategory keeps the products whose category equals category, ignoring case.
func InCategory(products []domain.Product, category string) []domain.Product {
	category = strings.TrimSpace(category)
	if category == "" {
		return products
	}

	result := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			result = append(result, p)
		}
	}
	return result
}

// Categories lists the distinct categories in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]bool)
	categories := []string{}
	for _, p := range products {
		key := strings.ToLower(p.Category)
		if p.Category == "" || seen[key] {
			continue
		}
		seen[key] = true
		categories = append(categories, p.Category)
	}
	return categories
}
