package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

// InsufficientStockError is returned by Client when the catalog refuses a
// decrement. It matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	ProductID string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Client talks to the catalog service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// GetProduct returns ErrProductNotFound for unknown ids.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create product request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrProductNotFound
	default:
		return nil, fmt.Errorf("catalog service returned status %d for product %s", resp.StatusCode, id)
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &product, nil
}

func (c *Client) DecrementStock(ctx context.Context, id string, quantity int) (*domain.StockLevel, error) {
	return c.changeStock(ctx, id, "decrement", quantity)
}

func (c *Client) IncrementStock(ctx context.Context, id string, quantity int) (*domain.StockLevel, error) {
	return c.changeStock(ctx, id, "increment", quantity)
}

func (c *Client) changeStock(ctx context.Context, id, op string, quantity int) (*domain.StockLevel, error) {
	data, err := json.Marshal(quantityRequest{Quantity: quantity})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}

	endpoint := fmt.Sprintf("%s/products/%s/stock/%s", c.baseURL, url.PathEscape(id), op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s stock for product %s: %w", op, id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrProductNotFound
	case http.StatusConflict:
		var body insufficientStockResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, &InsufficientStockError{ProductID: id, Available: body.Available}
	default:
		return nil, fmt.Errorf("catalog service returned status %d for product %s", resp.StatusCode, id)
	}

	var level domain.StockLevel
	if err := json.NewDecoder(resp.Body).Decode(&level); err != nil {
		return nil, fmt.Errorf("decode stock level: %w", err)
	}
	return &level, nil
}
