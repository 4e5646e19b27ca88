package service

import (
	"context"
	"log/slog"

	"github.com/atelieforma/storefront/internal/api/middleware"
	"github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/metrics"
	"github.com/atelieforma/storefront/internal/models"
	repository "github.com/atelieforma/storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// EmailSender delivers the order confirmation. Delivery is best effort and
// never blocks order creation.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, toEmail, toName string, order *models.Order) error
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	email       EmailSender
	sanitizer   *bluemonday.Policy
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, userRepo repository.UserRepository, email EmailSender) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		email:       email,
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

// CreateOrder creates exactly one order from the given snapshot lines. The
// total is computed from the lines' unit-price snapshots, so it equals the
// cart total at submission time.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {

	if len(req.Lines) == 0 {
		return nil, errors.BadRequestError("Cannot create order with no lines")
	}

	for _, line := range req.Lines {
		product, err := s.productRepo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, errors.NotFoundError("Product not found: " + line.ProductID.String()).WithError(err)
		}
		if product.Stock < line.Quantity {
			return nil, errors.BadRequestError("Insufficient stock for product: " + line.ProductID.String())
		}
	}

	total := decimal.Zero

	for _, line := range req.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          req.UserID,
		Status:          models.OrderStatusPending,
		Total:           total,
		PaymentMethod:   req.PaymentMethod,
		Notes:           s.sanitizer.Sanitize(req.Notes),
		ShippingAddress: req.ShippingAddress,
	}

	lines := make([]models.OrderLine, 0, len(req.Lines))

	for _, line := range req.Lines {
		lines = append(lines, models.OrderLine{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	order.Lines = lines

	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		return nil, errors.DatabaseError("Failed to create order").WithError(err)
	}

	for _, line := range order.Lines {
		if err := s.productRepo.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			return nil, errors.DatabaseError("Failed to update inventory").WithError(err)
		}
	}

	metrics.OrderCreated(string(order.PaymentMethod))

	s.sendConfirmation(ctx, order)

	return order, nil
}

func (s *OrderService) GetOrderForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderById(ctx, id)
	if err != nil {
		return nil, errors.NotFoundError("Order not found").WithError(err)
	}

	if order.UserID != userID {
		return nil, errors.ForbiddenError("Order belongs to another user")
	}

	return order, nil
}

func (s *OrderService) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {

	if page < 1 {
		page = 1
	}

	if size < 1 || size > 20 {
		size = 20
	}

	orders, total, err := s.orderRepo.ListOrdersByUser(ctx, userID, page, size)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {

	if _, err := s.orderRepo.GetOrderById(ctx, id); err != nil {
		return nil, errors.NotFoundError("Order not found").WithError(err)
	}

	order, err := s.orderRepo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return nil, errors.DatabaseError("Failed to update order status").WithError(err)
	}

	return order, nil
}

func (s *OrderService) sendConfirmation(ctx context.Context, order *models.Order) {

	if s.email == nil {
		return
	}

	logger := middleware.LoggerFromContext(ctx)

	user, err := s.userRepo.GetUserByID(ctx, order.UserID)
	if err != nil {
		logger.Warn("Skipping order confirmation email, user lookup failed",
			slog.String("orderId", order.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.email.SendOrderConfirmation(ctx, user.Email, user.Name, order); err != nil {
		logger.Warn("Failed to send order confirmation email",
			slog.String("orderId", order.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
