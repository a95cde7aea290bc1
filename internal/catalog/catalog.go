package catalog

import (
	"context"
	"errors"
	"time"
)

// Katalog dimiliki proses lain (admin tool); dari sisi bot semuanya read-only.

type Product struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`
	Stock      int       `json:"stock"`
	Sold       int       `json:"sold"`
	CategoryID string    `json:"category_id"`
	Active     bool      `json:"active"`
	Desc       string    `json:"desc"`
	CreatedAt  time.Time `json:"created_at"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var ErrProductNotFound = errors.New("product not found")

type Repo interface {
	// GetProduct hanya mengembalikan produk aktif; kode tak dikenal atau
	// produk nonaktif -> ErrProductNotFound.
	GetProduct(ctx context.Context, code string) (*Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListByCategory(ctx context.Context, categoryID string) ([]Product, error)
}
