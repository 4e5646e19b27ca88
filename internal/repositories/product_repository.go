package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atelieforma/storefront/internal/models"
	"github.com/atelieforma/storefront/internal/utils"
	"github.com/google/uuid"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type productRepository struct {
	DB *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO products (id, title, description, price, stock, category, images, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query,
		product.ID, product.Title, product.Description, product.Price,
		product.Stock, product.Category, product.Images, product.Status,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, title, description, price, stock, category, images, status, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &models.Product{}

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&product.ID, &product.Title, &product.Description, &product.Price,
		&product.Stock, &product.Category, &product.Images, &product.Status,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	return product, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products
		SET title = $1, description = $2, price = $3, stock = $4, category = $5, images = $6, status = $7, updated_at = NOW()
		WHERE id = $8
	`

	result, err := r.DB.ExecContext(dbCtx, query,
		product.Title, product.Description, product.Price, product.Stock,
		product.Category, product.Images, product.Status, product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update the product: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ListActiveProducts honours the caller's deadline instead of the repository
// default, so the catalog's fetch timeout stays in control.
func (r *productRepository) ListActiveProducts(ctx context.Context) ([]models.Product, error) {

	query := `
		SELECT id, title, description, price, stock, category, images, status, created_at, updated_at
		FROM products
		WHERE status = 'active'
		ORDER BY created_at DESC
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying database: %w", err)
	}
	defer rows.Close()

	var products []models.Product

	for rows.Next() {
		var p models.Product

		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock,
			&p.Category, &p.Images, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	// stock is never taken below zero
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	result, err := r.DB.ExecContext(dbCtx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
