package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/atelieforma/storefront/internal/models"
	"github.com/atelieforma/storefront/internal/utils"
	"github.com/google/uuid"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderById(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

// CreateOrder writes the order and its lines in one transaction. The shipping
// address is denormalized into the row as JSON so later address edits cannot
// touch a placed order.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (id, user_id, status, total, payment_method, notes, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(dbCtx, orderQuery,
		order.ID, order.UserID, order.Status, order.Total,
		order.PaymentMethod, order.Notes, addressJSON,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	for i := range order.Lines {
		line := &order.Lines[i]

		err = tx.QueryRowContext(dbCtx, lineQuery,
			line.ID, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice,
		).Scan(&line.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	return tx.Commit()
}

func (r *orderRepository) GetOrderById(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, status, total, payment_method, notes, shipping_address, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	order := &models.Order{}

	var addressJSON []byte

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&order.ID, &order.UserID, &order.Status, &order.Total,
		&order.PaymentMethod, &order.Notes, &addressJSON,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}

	lines, err := r.orderLines(dbCtx, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) orderLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {

	query := `
		SELECT id, order_id, product_id, quantity, unit_price, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.DB.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine

	for rows.Next() {
		var line models.OrderLine

		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID,
			&line.Quantity, &line.UnitPrice, &line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}

		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1`
	if err := r.DB.QueryRowContext(dbCtx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	query := `
		SELECT id, user_id, status, total, payment_method, notes, shipping_address, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order

	for rows.Next() {
		var order models.Order

		var addressJSON []byte

		if err := rows.Scan(
			&order.ID, &order.UserID, &order.Status, &order.Total,
			&order.PaymentMethod, &order.Notes, &addressJSON,
			&order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning order row: %w", err)
		}

		if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}

		orders = append(orders, order)
	}

	return orders, total, rows.Err()
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.DB.ExecContext(dbCtx, query, status, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return nil, sql.ErrNoRows
	}

	return r.GetOrderById(ctx, id)
}
