package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

// memStore mirrors ProductRepository semantics in memory.
type memStore struct {
	mu       sync.Mutex
	products []domain.Product
	nextID   int
	failures map[string]error
	// afterGet runs under the lock once Get has taken its copy.
	afterGet func(products []domain.Product)
}

func newMemStore(products ...domain.Product) *memStore {
	return &memStore{products: products, failures: map[string]error{}}
}

func (s *memStore) fail(op string) error {
	return s.failures[op]
}

func (s *memStore) ListAll(ctx context.Context) ([]domain.Product, error) {
	if err := s.fail("list"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*domain.Product, error) {
	if err := s.fail("get"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			if s.afterGet != nil {
				s.afterGet(s.products)
			}
			return &p, nil
		}
	}
	return nil, nil
}

func (s *memStore) nameTaken(name, exceptID string) bool {
	for _, p := range s.products {
		if p.ID != exceptID && strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

func (s *memStore) Create(ctx context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(p.Name, "") {
		return ErrDuplicateName
	}
	s.nextID++
	p.ID = fmt.Sprintf("prod-%d", s.nextID)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	s.products = append(s.products, *p)
	return nil
}

func (s *memStore) Update(ctx context.Context, p *domain.Product, setStock bool) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(p.Name, p.ID) {
		return nil, ErrDuplicateName
	}
	for i := range s.products {
		if s.products[i].ID == p.ID {
			next := *p
			if !setStock {
				next.Stock = s.products[i].Stock
			}
			s.products[i] = next
			updated := next
			return &updated, nil
		}
	}
	return nil, nil
}

func (s *memStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	if err := s.fail("adjust"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID != id {
			continue
		}
		if s.products[i].Stock+delta < 0 {
			return nil, ErrInsufficientStock
		}
		s.products[i].Stock += delta
		updated := s.products[i]
		return &updated, nil
	}
	return nil, ErrProductNotFound
}
