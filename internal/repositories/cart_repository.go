package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atelieforma/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CartRepository is the durable key-value slot for the cart: one fixed key per
// user, read once when the cart is first touched and overwritten on every
// mutation.
type CartRepository interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	client *redis.Client
}

func NewCartRepo(client *redis.Client) CartRepository {
	return &cartRepository{client: client}
}

func cartKey(userID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", userID)
}

// GetCart returns an empty cart when no slot exists. Corrupt payloads and
// transport failures surface as errors; the caller decides the fallback.
func (r *cartRepository) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {

	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.NewCart(userID), nil
		}

		return nil, fmt.Errorf("failed to read cart slot: %w", err)
	}

	cart := &models.Cart{}

	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}

	if cart.Lines == nil {
		cart.Lines = []models.CartLine{}
	}

	return cart, nil
}

func (r *cartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, cartKey(cart.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cart slot: %w", err)
	}

	return nil
}

func (r *cartRepository) DeleteCart(ctx context.Context, userID uuid.UUID) error {

	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart slot: %w", err)
	}

	return nil
}
