package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	appErrors "github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/models"
	repository "github.com/atelieforma/storefront/internal/repositories"
	"github.com/google/uuid"
)

// CatalogService supplies product entities to the shop views. Listings are
// served from an in-memory snapshot that is re-fetched whenever the catalog
// notifier signals a change; every fetch runs under a bounded deadline so a
// slow backend shows up as a timeout instead of a hang.
type CatalogService struct {
	repo         repository.ProductRepository
	notifier     repository.CatalogNotifier
	fetchTimeout time.Duration

	mu       sync.RWMutex
	products []models.Product
	loaded   bool
}

func NewCatalogService(repo repository.ProductRepository, notifier repository.CatalogNotifier, fetchTimeout time.Duration) *CatalogService {
	return &CatalogService{
		repo:         repo,
		notifier:     notifier,
		fetchTimeout: fetchTimeout,
	}
}

func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()

	if !loaded {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]models.Product, 0, len(s.products))

	for i := range s.products {
		if filter.Matches(&s.products[i]) {
			filtered = append(filtered, s.products[i])
		}
	}

	return filtered, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, appErrors.NotFoundError("Product not found").WithError(err)
	}

	return product, nil
}

// Refresh re-fetches the active product listing under the fetch deadline.
func (s *CatalogService) Refresh(ctx context.Context) error {

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	products, err := s.repo.ListActiveProducts(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return appErrors.TimeoutError("Catalog fetch timed out").WithError(err)
		}

		return appErrors.DatabaseError("Failed to fetch products").WithError(err)
	}

	s.mu.Lock()
	s.products = products
	s.loaded = true
	s.mu.Unlock()

	return nil
}

// Watch subscribes to catalog change notifications and refreshes the listing
// on each one. The returned func unsubscribes.
func (s *CatalogService) Watch(ctx context.Context) (func(), error) {

	unsubscribe, err := s.notifier.Subscribe(ctx, func() {

		refreshCtx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		defer cancel()

		if err := s.Refresh(refreshCtx); err != nil {
			slog.Warn("Catalog refresh after change notification failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, appErrors.ThirdPartyError("Failed to subscribe to catalog updates").WithError(err)
	}

	return unsubscribe, nil
}
