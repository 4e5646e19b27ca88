package service_test

import (
	"context"
	"testing"

	appErrors "github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/models"
	service "github.com/atelieforma/storefront/internal/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderRepo) GetOrderById(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockOrderRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {
	args := m.Called(ctx, userID, page, size)
	if orders := args.Get(0); orders != nil {
		return orders.([]models.Order), args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserRepo) AddAddress(ctx context.Context, address *models.Address) error {
	return m.Called(ctx, address).Error(0)
}

func (m *mockUserRepo) GetAddressByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	args := m.Called(ctx, id)
	if address := args.Get(0); address != nil {
		return address.(*models.Address), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserRepo) ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	args := m.Called(ctx, userID)
	if addresses := args.Get(0); addresses != nil {
		return addresses.([]models.Address), args.Error(1)
	}

	return nil, args.Error(1)
}

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendOrderConfirmation(ctx context.Context, toEmail, toName string, order *models.Order) error {
	return m.Called(ctx, toEmail, toName, order).Error(0)
}

type orderFixture struct {
	orders   *mockOrderRepo
	products *mockProductRepo
	users    *mockUserRepo
	email    *mockEmailSender
	service  *service.OrderService
}

func newOrderFixture() *orderFixture {
	orders := new(mockOrderRepo)
	products := new(mockProductRepo)
	users := new(mockUserRepo)
	email := new(mockEmailSender)

	return &orderFixture{
		orders:   orders,
		products: products,
		users:    users,
		email:    email,
		service:  service.NewOrderService(orders, products, users, email),
	}
}

func orderRequest(userID uuid.UUID, lines ...models.OrderLine) *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		UserID: userID,
		Lines:  lines,
		ShippingAddress: models.Address{
			Label: "Casa", Street: "Rua Harmonia", Number: "123",
			District: "Vila Madalena", City: "São Paulo", State: "SP", PostalCode: "05435-000",
		},
		PaymentMethod: models.PaymentMethodPix,
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Total Is Computed From Line Snapshots", func(t *testing.T) {
		// Arrange
		f := newOrderFixture()
		lampID, benchID := uuid.New(), uuid.New()
		req := orderRequest(userID,
			models.OrderLine{ProductID: lampID, Quantity: 3, UnitPrice: decimal.RequireFromString("100.00")},
			models.OrderLine{ProductID: benchID, Quantity: 1, UnitPrice: decimal.RequireFromString("1250.00")},
		)

		f.products.On("GetProductByID", ctx, lampID).Return(activeProduct(lampID, "100.00", 3), nil)
		f.products.On("GetProductByID", ctx, benchID).Return(activeProduct(benchID, "1250.00", 2), nil)
		f.orders.On("CreateOrder", ctx, mock.AnythingOfType("*models.Order")).Return(nil).Once()
		f.products.On("DecrementStock", ctx, lampID, 3).Return(nil).Once()
		f.products.On("DecrementStock", ctx, benchID, 1).Return(nil).Once()
		f.users.On("GetUserByID", ctx, userID).Return(&models.User{ID: userID, Name: "Ana Souza", Email: "ana@example.com"}, nil).Once()
		f.email.On("SendOrderConfirmation", ctx, "ana@example.com", "Ana Souza", mock.Anything).Return(nil).Once()

		// Act
		order, err := f.service.CreateOrder(ctx, req)

		// Assert
		require.NoError(t, err)
		assert.True(t, order.Total.Equal(decimal.RequireFromString("1550.00")), "got total %s", order.Total)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Len(t, order.Lines, 2)
		f.products.AssertExpectations(t)
		f.email.AssertExpectations(t)
	})

	t.Run("Notes Are Stripped Of Markup", func(t *testing.T) {
		// Arrange
		f := newOrderFixture()
		lampID := uuid.New()
		req := orderRequest(userID, models.OrderLine{ProductID: lampID, Quantity: 1, UnitPrice: decimal.RequireFromString("100.00")})
		req.Notes = `Entregar para: <script>alert("x")</script>Ana`

		f.products.On("GetProductByID", ctx, lampID).Return(activeProduct(lampID, "100.00", 3), nil)
		f.orders.On("CreateOrder", ctx, mock.Anything).Return(nil).Once()
		f.products.On("DecrementStock", ctx, lampID, 1).Return(nil).Once()
		f.users.On("GetUserByID", ctx, userID).Return(&models.User{ID: userID, Email: "ana@example.com"}, nil).Once()
		f.email.On("SendOrderConfirmation", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		// Act
		order, err := f.service.CreateOrder(ctx, req)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Entregar para: Ana", order.Notes)
	})

	t.Run("Insufficient Stock Rejects The Whole Order", func(t *testing.T) {
		// Arrange
		f := newOrderFixture()
		lampID := uuid.New()
		req := orderRequest(userID, models.OrderLine{ProductID: lampID, Quantity: 5, UnitPrice: decimal.RequireFromString("100.00")})

		f.products.On("GetProductByID", ctx, lampID).Return(activeProduct(lampID, "100.00", 3), nil).Once()

		// Act
		order, err := f.service.CreateOrder(ctx, req)

		// Assert
		assert.Nil(t, order)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("No Lines Is Rejected", func(t *testing.T) {
		f := newOrderFixture()

		order, err := f.service.CreateOrder(ctx, orderRequest(userID))

		assert.Nil(t, order)
		assert.Error(t, err)
	})

	t.Run("Email Failure Does Not Fail The Order", func(t *testing.T) {
		// Arrange
		f := newOrderFixture()
		lampID := uuid.New()
		req := orderRequest(userID, models.OrderLine{ProductID: lampID, Quantity: 1, UnitPrice: decimal.RequireFromString("100.00")})

		f.products.On("GetProductByID", ctx, lampID).Return(activeProduct(lampID, "100.00", 3), nil)
		f.orders.On("CreateOrder", ctx, mock.Anything).Return(nil).Once()
		f.products.On("DecrementStock", ctx, lampID, 1).Return(nil).Once()
		f.users.On("GetUserByID", ctx, userID).Return(&models.User{ID: userID, Email: "ana@example.com"}, nil).Once()
		f.email.On("SendOrderConfirmation", ctx, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

		// Act
		order, err := f.service.CreateOrder(ctx, req)

		// Assert
		require.NoError(t, err)
		assert.NotNil(t, order)
	})
}

func TestGetOrderForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Order Of Another User Is Forbidden", func(t *testing.T) {
		// Arrange
		f := newOrderFixture()
		orderID := uuid.New()
		f.orders.On("GetOrderById", ctx, orderID).Return(&models.Order{ID: orderID, UserID: uuid.New()}, nil).Once()

		// Act
		order, err := f.service.GetOrderForUser(ctx, orderID, uuid.New())

		// Assert
		assert.Nil(t, order)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeForbidden, appErr.Code)
	})

	t.Run("Owner Gets The Order", func(t *testing.T) {
		// Arrange
		f := newOrderFixture()
		orderID, userID := uuid.New(), uuid.New()
		f.orders.On("GetOrderById", ctx, orderID).Return(&models.Order{ID: orderID, UserID: userID}, nil).Once()

		// Act
		order, err := f.service.GetOrderForUser(ctx, orderID, userID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, orderID, order.ID)
	})
}

func TestListOrdersByUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Page And Size Are Clamped", func(t *testing.T) {
		// Arrange
		f := newOrderFixture()
		userID := uuid.New()
		f.orders.On("ListOrdersByUser", ctx, userID, 1, 20).Return([]models.Order{}, 0, nil).Once()

		// Act
		_, _, err := f.service.ListOrdersByUser(ctx, userID, -3, 500)

		// Assert
		require.NoError(t, err)
		f.orders.AssertExpectations(t)
	})
}
