package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appErrors "github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/models"
	service "github.com/atelieforma/storefront/internal/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeNotifier hands the subscriber callback back to the test so change
// notifications can be fired synchronously.
type fakeNotifier struct {
	mu           sync.Mutex
	onChange     func()
	unsubscribed bool
}

func (f *fakeNotifier) NotifyChange(_ context.Context) error {
	f.mu.Lock()
	onChange := f.onChange
	f.mu.Unlock()

	if onChange != nil {
		onChange()
	}

	return nil
}

func (f *fakeNotifier) Subscribe(_ context.Context, onChange func()) (func(), error) {
	f.mu.Lock()
	f.onChange = onChange
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.onChange = nil
		f.unsubscribed = true
	}, nil
}

func catalogProducts() []models.Product {
	return []models.Product{
		{
			ID:          uuid.New(),
			Title:       "Luminária Concreto",
			Description: "Luminária de mesa em concreto aparente",
			Price:       decimal.RequireFromString("300.00"),
			Stock:       3,
			Category:    "iluminacao",
			Status:      models.ProductStatusActive,
		},
		{
			ID:          uuid.New(),
			Title:       "Banco Ripado",
			Description: "Banco em madeira freijó",
			Price:       decimal.RequireFromString("1250.00"),
			Stock:       2,
			Category:    "mobiliario",
			Status:      models.ProductStatusActive,
		},
		{
			ID:          uuid.New(),
			Title:       "Vaso Modular",
			Description: "Vaso em concreto para plantas",
			Price:       decimal.RequireFromString("180.00"),
			Stock:       8,
			Category:    "objetos",
			Status:      models.ProductStatusActive,
		},
	}
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("First Listing Fetches Lazily", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		repo.On("ListActiveProducts", mock.Anything).Return(catalogProducts(), nil).Once()
		svc := service.NewCatalogService(repo, &fakeNotifier{}, time.Second)

		// Act
		first, err := svc.ListProducts(ctx, models.ProductFilter{})
		require.NoError(t, err)
		second, err := svc.ListProducts(ctx, models.ProductFilter{})
		require.NoError(t, err)

		// Assert: the snapshot serves repeat listings
		assert.Len(t, first, 3)
		assert.Len(t, second, 3)
		repo.AssertNumberOfCalls(t, "ListActiveProducts", 1)
	})

	t.Run("Category Filter Is Case Insensitive", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		repo.On("ListActiveProducts", mock.Anything).Return(catalogProducts(), nil).Once()
		svc := service.NewCatalogService(repo, &fakeNotifier{}, time.Second)

		// Act
		products, err := svc.ListProducts(ctx, models.ProductFilter{Category: "MOBILIARIO"})

		// Assert
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Banco Ripado", products[0].Title)
	})

	t.Run("Query Matches Title And Description", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		repo.On("ListActiveProducts", mock.Anything).Return(catalogProducts(), nil).Once()
		svc := service.NewCatalogService(repo, &fakeNotifier{}, time.Second)

		// Act: "concreto" appears in one title and two descriptions
		products, err := svc.ListProducts(ctx, models.ProductFilter{Query: "ConcReto"})

		// Assert
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("Category And Query Combine", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		repo.On("ListActiveProducts", mock.Anything).Return(catalogProducts(), nil).Once()
		svc := service.NewCatalogService(repo, &fakeNotifier{}, time.Second)

		// Act
		products, err := svc.ListProducts(ctx, models.ProductFilter{Category: "objetos", Query: "concreto"})

		// Assert
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Vaso Modular", products[0].Title)
	})

	t.Run("No Match Returns Empty Slice", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		repo.On("ListActiveProducts", mock.Anything).Return(catalogProducts(), nil).Once()
		svc := service.NewCatalogService(repo, &fakeNotifier{}, time.Second)

		// Act
		products, err := svc.ListProducts(ctx, models.ProductFilter{Query: "inexistente"})

		// Assert
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Slow Fetch Surfaces As Timeout", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		repo.On("ListActiveProducts", mock.Anything).Return(nil, context.DeadlineExceeded).Once()
		svc := service.NewCatalogService(repo, &fakeNotifier{}, time.Millisecond)

		// Act
		err := svc.Refresh(ctx)

		// Assert
		require.Error(t, err)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeTimeout, appErr.Code)
	})

	t.Run("Fetch Failure Keeps Previous Snapshot", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		repo.On("ListActiveProducts", mock.Anything).Return(catalogProducts(), nil).Once()
		svc := service.NewCatalogService(repo, &fakeNotifier{}, time.Second)
		require.NoError(t, svc.Refresh(ctx))

		repo.On("ListActiveProducts", mock.Anything).Return(nil, assert.AnError).Once()

		// Act
		err := svc.Refresh(ctx)

		// Assert
		require.Error(t, err)

		products, listErr := svc.ListProducts(ctx, models.ProductFilter{})
		require.NoError(t, listErr)
		assert.Len(t, products, 3)
	})
}

func TestWatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Change Notification Refreshes The Listing", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		notifier := &fakeNotifier{}
		svc := service.NewCatalogService(repo, notifier, time.Second)

		repo.On("ListActiveProducts", mock.Anything).Return(catalogProducts()[:1], nil).Once()
		require.NoError(t, svc.Refresh(ctx))

		unsubscribe, err := svc.Watch(ctx)
		require.NoError(t, err)
		defer unsubscribe()

		repo.On("ListActiveProducts", mock.Anything).Return(catalogProducts(), nil).Once()

		// Act
		require.NoError(t, notifier.NotifyChange(ctx))

		// Assert
		products, err := svc.ListProducts(ctx, models.ProductFilter{})
		require.NoError(t, err)
		assert.Len(t, products, 3)
		repo.AssertNumberOfCalls(t, "ListActiveProducts", 2)
	})

	t.Run("Unsubscribe Stops Refreshes", func(t *testing.T) {
		// Arrange
		repo := new(mockProductRepo)
		notifier := &fakeNotifier{}
		svc := service.NewCatalogService(repo, notifier, time.Second)

		unsubscribe, err := svc.Watch(ctx)
		require.NoError(t, err)

		// Act
		unsubscribe()
		require.NoError(t, notifier.NotifyChange(ctx))

		// Assert
		assert.True(t, notifier.unsubscribed)
		repo.AssertNotCalled(t, "ListActiveProducts", mock.Anything)
	})
}
