package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/atelieforma/storefront/internal/api/middleware"
	"github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/models"
	repository "github.com/atelieforma/storefront/internal/repositories"
	"github.com/google/uuid"
)

// CartService is the single writer for a user's cart. Quantities are always
// clamped to the product's stock; a requested quantity above stock is reduced
// silently rather than rejected. The cart is written back to its durable slot
// after every mutation, best effort: a failed write is logged and the mutation
// still succeeds.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.load(ctx, userID), nil
}

func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddCartItemRequest) (*models.Cart, error) {

	product, err := s.productRepo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, errors.NotFoundError("Product not found").WithError(err)
	}

	if product.Status != models.ProductStatusActive {
		return nil, errors.BadRequestError("Product is not available")
	}

	cart := s.load(ctx, userID)

	idx := cart.LineIndex(product.ID)
	if idx >= 0 {
		line := &cart.Lines[idx]
		line.Quantity = clampQuantity(line.Quantity+req.Quantity, product.Stock)
		line.Stock = product.Stock

		if line.Quantity <= 0 {
			cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
		}
	} else {

		quantity := clampQuantity(req.Quantity, product.Stock)

		// a line is never stored with quantity zero
		if quantity > 0 {
			cart.Lines = append(cart.Lines, models.CartLine{
				ProductID: product.ID,
				Title:     product.Title,
				UnitPrice: product.Price,
				Stock:     product.Stock,
				Quantity:  quantity,
			})
		}
	}

	cart.Recalculate()
	s.save(ctx, cart)

	return cart, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {

	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart := s.load(ctx, userID)

	idx := cart.LineIndex(productID)
	if idx < 0 {
		return nil, errors.BadRequestError("Item not found in the cart")
	}

	line := &cart.Lines[idx]

	// bound by current stock; fall back to the line's snapshot when the
	// catalog cannot be consulted
	stock := line.Stock

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		middleware.LoggerFromContext(ctx).Warn("Stock lookup failed, clamping against snapshot",
			slog.String("productId", productID.String()),
			slog.String("error", err.Error()),
		)
	} else {
		stock = product.Stock
		line.Stock = product.Stock
	}

	line.Quantity = clampQuantity(quantity, stock)

	if line.Quantity <= 0 {
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	}

	cart.Recalculate()
	s.save(ctx, cart)

	return cart, nil
}

// RemoveItem deletes the line if present and is a no-op otherwise.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {

	cart := s.load(ctx, userID)

	idx := cart.LineIndex(productID)
	if idx < 0 {
		return cart, nil
	}

	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)

	cart.Recalculate()
	s.save(ctx, cart)

	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {

	cart := models.NewCart(userID)

	s.save(ctx, cart)

	return cart, nil
}

func (s *CartService) IsInCart(ctx context.Context, userID, productID uuid.UUID) bool {
	return s.ItemQuantity(ctx, userID, productID) > 0
}

// ItemQuantity returns 0 when the product is not in the cart.
func (s *CartService) ItemQuantity(ctx context.Context, userID, productID uuid.UUID) int {

	cart := s.load(ctx, userID)

	idx := cart.LineIndex(productID)
	if idx < 0 {
		return 0
	}

	return cart.Lines[idx].Quantity
}

// load never fails: a read error falls back to an empty cart so the shop stays
// usable when the slot is unreachable or corrupt.
func (s *CartService) load(ctx context.Context, userID uuid.UUID) *models.Cart {

	cart, err := s.cartRepo.GetCart(ctx, userID)
	if err != nil {
		middleware.LoggerFromContext(ctx).Error("Failed to read cart slot, starting from an empty cart",
			slog.String("userId", userID.String()),
			slog.String("error", err.Error()),
		)

		return models.NewCart(userID)
	}

	return cart
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) {

	cart.UpdatedAt = time.Now()

	if err := s.cartRepo.SaveCart(ctx, cart); err != nil {
		middleware.LoggerFromContext(ctx).Error("Failed to persist cart, keeping in-memory state",
			slog.String("userId", cart.UserID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func clampQuantity(quantity, stock int) int {
	if quantity > stock {
		return stock
	}

	return quantity
}
