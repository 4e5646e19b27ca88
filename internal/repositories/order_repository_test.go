package repository_test

import (
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atelieforma/storefront/internal/models"
	repository "github.com/atelieforma/storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumns = []string{"id", "user_id", "status", "total", "payment_method", "notes", "shipping_address", "created_at", "updated_at"}

func setupOrderRepoTest(t *testing.T) (repository.OrderRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	repo := repository.NewOrderRepo(db)
	require.NotNil(t, repo, "NewOrderRepo should return a non-nil repository")

	return repo, mock
}

func shippingAddress() models.Address {
	return models.Address{
		ID:         uuid.New(),
		Label:      "Casa",
		Street:     "Rua Harmonia",
		Number:     "123",
		District:   "Vila Madalena",
		City:       "São Paulo",
		State:      "SP",
		PostalCode: "05435-000",
	}
}

func pendingOrder(userID uuid.UUID) *models.Order {
	orderID := uuid.New()

	return &models.Order{
		ID:              orderID,
		UserID:          userID,
		Status:          models.OrderStatusPending,
		Total:           decimal.RequireFromString("300.00"),
		PaymentMethod:   models.PaymentMethodPix,
		Notes:           "Entregar para: Ana Souza",
		ShippingAddress: shippingAddress(),
		Lines: []models.OrderLine{{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: uuid.New(),
			Quantity:  3,
			UnitPrice: decimal.RequireFromString("100.00"),
		}},
	}
}

func TestCreateOrder_Repository(t *testing.T) {
	ctx := t.Context()
	userID := uuid.New()

	orderSQL := regexp.QuoteMeta(`
		INSERT INTO orders (id, user_id, status, total, payment_method, notes, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`)
	lineSQL := regexp.QuoteMeta(`
		INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := pendingOrder(userID)
		addressJSON, err := json.Marshal(order.ShippingAddress)
		require.NoError(t, err)

		now := time.Now()
		line := order.Lines[0]

		mock.ExpectBegin()
		mock.ExpectQuery(orderSQL).
			WithArgs(order.ID, order.UserID, order.Status, order.Total, order.PaymentMethod, order.Notes, addressJSON).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(lineSQL).
			WithArgs(line.ID, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		// Act
		err = repo.CreateOrder(ctx, order)

		// Assert
		require.NoError(t, err, "CreateOrder should not return an error on success")
		assert.WithinDuration(t, now, order.CreatedAt, time.Second)
		assert.WithinDuration(t, now, order.Lines[0].CreatedAt, time.Second)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Line Insert Failure Rolls Back", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := pendingOrder(userID)
		addressJSON, err := json.Marshal(order.ShippingAddress)
		require.NoError(t, err)

		now := time.Now()
		dbError := errors.New("order_lines insert failed")

		mock.ExpectBegin()
		mock.ExpectQuery(orderSQL).
			WithArgs(order.ID, order.UserID, order.Status, order.Total, order.PaymentMethod, order.Notes, addressJSON).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(lineSQL).WillReturnError(dbError)
		mock.ExpectRollback()

		// Act
		err = repo.CreateOrder(ctx, order)

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, dbError)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin Failure", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := pendingOrder(userID)

		mock.ExpectBegin().WillReturnError(errors.New("no connection"))

		// Act
		err := repo.CreateOrder(ctx, order)

		// Assert
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetOrderById(t *testing.T) {
	ctx := t.Context()

	orderSQL := regexp.QuoteMeta(`
		SELECT id, user_id, status, total, payment_method, notes, shipping_address, created_at, updated_at
		FROM orders
		WHERE id = $1
	`)
	linesSQL := regexp.QuoteMeta(`
		SELECT id, order_id, product_id, quantity, unit_price, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at
	`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		orderID, userID := uuid.New(), uuid.New()
		addressJSON, err := json.Marshal(shippingAddress())
		require.NoError(t, err)

		now := time.Now()

		mock.ExpectQuery(orderSQL).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow(orderID, userID, "pending", "300.00", "whatsapp", "", addressJSON, now, now))
		mock.ExpectQuery(linesSQL).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "unit_price", "created_at"}).
				AddRow(uuid.New(), orderID, uuid.New(), 3, "100.00", now))

		// Act
		order, err := repo.GetOrderById(ctx, orderID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, orderID, order.ID)
		assert.Equal(t, models.PaymentMethodWhatsApp, order.PaymentMethod)
		assert.Equal(t, "Rua Harmonia", order.ShippingAddress.Street)
		require.Len(t, order.Lines, 1)
		assert.Equal(t, 3, order.Lines[0].Quantity)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		orderID := uuid.New()

		mock.ExpectQuery(orderSQL).WithArgs(orderID).WillReturnError(sql.ErrNoRows)

		// Act
		order, err := repo.GetOrderById(ctx, orderID)

		// Assert
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, order)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListOrdersByUser_Repository(t *testing.T) {
	ctx := t.Context()

	countSQL := regexp.QuoteMeta(`SELECT COUNT(*) FROM orders WHERE user_id = $1`)
	listSQL := regexp.QuoteMeta(`
		SELECT id, user_id, status, total, payment_method, notes, shipping_address, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`)

	t.Run("Success With Pagination", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		userID := uuid.New()
		addressJSON, err := json.Marshal(shippingAddress())
		require.NoError(t, err)

		now := time.Now()

		mock.ExpectQuery(countSQL).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
		mock.ExpectQuery(listSQL).
			WithArgs(userID, 10, 10).
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow(uuid.New(), userID, "pending", "300.00", "pix", "", addressJSON, now, now).
				AddRow(uuid.New(), userID, "delivered", "1250.00", "whatsapp", "", addressJSON, now, now))

		// Act
		orders, total, err := repo.ListOrdersByUser(ctx, userID, 2, 10)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		require.Len(t, orders, 2)
		assert.Equal(t, models.OrderStatusDelivered, orders[1].Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Count Failure", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		userID := uuid.New()

		mock.ExpectQuery(countSQL).WithArgs(userID).WillReturnError(errors.New("count failed"))

		// Act
		orders, total, err := repo.ListOrdersByUser(ctx, userID, 1, 10)

		// Assert
		require.Error(t, err)
		assert.Zero(t, total)
		assert.Nil(t, orders)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateOrderStatus_Repository(t *testing.T) {
	ctx := t.Context()

	updateSQL := regexp.QuoteMeta(`
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		orderID := uuid.New()
		addressJSON, err := json.Marshal(shippingAddress())
		require.NoError(t, err)

		now := time.Now()

		mock.ExpectExec(updateSQL).
			WithArgs(models.OrderStatusConfirmed, orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, status, total, payment_method, notes, shipping_address, created_at, updated_at`)).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow(orderID, uuid.New(), "confirmed", "300.00", "pix", "", addressJSON, now, now))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM order_lines`)).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "unit_price", "created_at"}))

		// Act
		order, err := repo.UpdateOrderStatus(ctx, orderID, models.OrderStatusConfirmed)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusConfirmed, order.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		orderID := uuid.New()

		mock.ExpectExec(updateSQL).
			WithArgs(models.OrderStatusCancelled, orderID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		// Act
		order, err := repo.UpdateOrderStatus(ctx, orderID, models.OrderStatusCancelled)

		// Assert
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, order)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
