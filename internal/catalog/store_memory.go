package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemStore keeps products in insertion order for the life of the process.
type MemStore struct {
	mu    sync.RWMutex
	items []Product
	newID func() string
}

func NewMemStore(seed ...Product) *MemStore {
	s := &MemStore{
		items: make([]Product, 0, len(seed)),
		newID: uuid.NewString,
	}
	s.items = append(s.items, seed...)
	return s
}

// SeedProducts is the catalog a fresh process starts with.
func SeedProducts() []Product {
	return []Product{
		{ID: "1", Name: "Laptop", Description: "High-performance laptop with 16GB RAM", Price: 1200, Category: "electronics", InStock: true},
		{ID: "2", Name: "Smartphone", Description: "Latest model with 128GB storage", Price: 800, Category: "electronics", InStock: true},
		{ID: "3", Name: "Coffee Maker", Description: "Programmable coffee maker with timer", Price: 50, Category: "kitchen", InStock: false},
		{ID: "4", Name: "Desk Chair", Description: "Ergonomic office chair", Price: 250, Category: "furniture", InStock: true},
		{ID: "5", Name: "External Hard Drive", Description: "1TB portable SSD", Price: 100, Category: "electronics", InStock: true},
		{ID: "6", Name: "Blender", Description: "High-speed blender for smoothies", Price: 70, Category: "kitchen", InStock: true},
		{ID: "7", Name: "Keyboard", Description: "Mechanical gaming keyboard", Price: 90, Category: "electronics", InStock: false},
	}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

// List filters by category, counts, then slices the requested page, in that
// order, so TotalProducts always describes the filtered set.
func (s *MemStore) List(ctx context.Context, q ListQuery) (ListResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := s.items
	if q.Category != "" {
		filtered = make([]Product, 0, len(s.items))
		for _, p := range s.items {
			if strings.EqualFold(p.Category, q.Category) {
				filtered = append(filtered, p)
			}
		}
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = len(s.items)
	}

	return ListResult{
		Page:          page,
		Limit:         limit,
		TotalProducts: len(filtered),
		Products:      pageOf(filtered, page, limit),
	}, nil
}

func pageOf(ps []Product, page, limit int) []Product {
	out := []Product{}
	if limit == 0 {
		return out
	}

	start := (page - 1) * limit
	if start < 0 || start >= len(ps) || start/limit != page-1 {
		return out
	}
	end := start + limit
	if end > len(ps) || end < start {
		end = len(ps)
	}
	return append(out, ps[start:end]...)
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.items {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, &NotFoundError{ID: id}
}

func (s *MemStore) Create(ctx context.Context, np NewProduct) (Product, error) {
	p := Product{
		ID:          s.newID(),
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Category:    np.Category,
		InStock:     np.InStock,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, p)
	return p, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.items {
		if p.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return nil
		}
	}
	return &NotFoundError{ID: id}
}

func (s *MemStore) Search(ctx context.Context, term string) ([]Product, error) {
	if strings.TrimSpace(term) == "" {
		return nil, invalid("q", msgSearchTerm)
	}
	needle := strings.ToLower(term)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Product{}
	for _, p := range s.items {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) StatsByCategory(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int)
	for _, p := range s.items {
		stats[p.Category]++
	}
	return stats, nil
}

func (s *MemStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}
