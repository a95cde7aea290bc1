package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGRepo struct{ DB *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{DB: db} }

func (r *PGRepo) GetProduct(ctx context.Context, code string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT code, name, price, stock, sold, category_id, active, description, created_at
		FROM products WHERE code = $1 AND active`, code).
		Scan(&p.Code, &p.Name, &p.Price, &p.Stock, &p.Sold, &p.CategoryID, &p.Active, &p.Desc, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGRepo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) ListByCategory(ctx context.Context, categoryID string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT code, name, price, stock, sold, category_id, active, description, created_at
		FROM products WHERE category_id = $1 AND active ORDER BY code`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Price, &p.Stock, &p.Sold, &p.CategoryID, &p.Active, &p.Desc, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
