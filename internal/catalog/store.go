package catalog

import (
	"context"
	"fmt"
)

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	InStock     bool    `json:"inStock"`
}

// NewProduct is an accepted, normalized creation payload. Only Validate
// produces one.
type NewProduct struct {
	Name        string
	Description string
	Price       float64
	Category    string
	InStock     bool
}

type ListQuery struct {
	Category string
	// Page is 1-indexed; values < 1 mean the first page.
	Page int
	// Limit values < 1 mean the size of the whole collection.
	Limit int
}

type ListResult struct {
	Page          int       `json:"page"`
	Limit         int       `json:"limit"`
	TotalProducts int       `json:"totalProducts"`
	Products      []Product `json:"products"`
}

type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context, q ListQuery) (ListResult, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, np NewProduct) (Product, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, term string) ([]Product, error)
	StatsByCategory(ctx context.Context) (map[string]int, error)
	Count(ctx context.Context) (int, error)
}

// NotFoundError reports an id with no matching product.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %s not found.", e.ID)
}

// ValidationError carries the first rejected rule of a request.
type ValidationError struct {
	Message string
	Details map[string]any
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Message: msg, Details: map[string]any{"field": field}}
}
