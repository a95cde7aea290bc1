package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemRepo utk test dan mode dev.
type MemRepo struct {
	mu         sync.RWMutex
	products   map[string]Product
	categories map[string]Category
}

func NewMemRepo() *MemRepo {
	return &MemRepo{
		products:   map[string]Product{},
		categories: map[string]Category{},
	}
}

func (r *MemRepo) PutProduct(p Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.Code] = p
}

func (r *MemRepo) PutCategory(c Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c.ID] = c
}

func (r *MemRepo) GetProduct(_ context.Context, code string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[code]
	if !ok || !p.Active {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (r *MemRepo) ListCategories(_ context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemRepo) ListByCategory(_ context.Context, categoryID string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Product
	for _, p := range r.products {
		if p.CategoryID == categoryID && p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
