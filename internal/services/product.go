package service

import (
	"context"
	"log/slog"

	"github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/models"
	repository "github.com/atelieforma/storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// ProductService is the studio's content-management surface for the catalog.
// Every successful write publishes a change notification so catalog views
// re-fetch.
type ProductService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error)
}

type productService struct {
	repo      repository.ProductRepository
	notifier  repository.CatalogNotifier
	sanitizer *bluemonday.Policy
}

func NewProductService(repo repository.ProductRepository, notifier repository.CatalogNotifier) ProductService {
	return &productService{
		repo:      repo,
		notifier:  notifier,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

func (s *productService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {

	if req.Price.IsNegative() || req.Price.IsZero() {
		return nil, errors.ValidationError("Price must be greater than zero")
	}

	product := &models.Product{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: s.sanitizer.Sanitize(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Images:      req.Images,
		Status:      models.ProductStatusActive,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, errors.DatabaseError("Failed to create product").WithError(err)
	}

	s.notifyChange(ctx)

	return product, nil
}

func (s *productService) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, errors.NotFoundError("Product not found").WithError(err)
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, errors.NotFoundError("Product not found").WithError(err)
	}

	if req.Title != nil {
		product.Title = *req.Title
	}
	if req.Description != nil {
		product.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.Price != nil {
		if req.Price.IsNegative() || req.Price.IsZero() {
			return nil, errors.ValidationError("Price must be greater than zero")
		}
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Images != nil {
		product.Images = *req.Images
	}
	if req.Status != nil {
		product.Status = *req.Status
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, errors.DatabaseError("Failed to update product").WithError(err)
	}

	s.notifyChange(ctx)

	return product, nil
}

func (s *productService) notifyChange(ctx context.Context) {
	if err := s.notifier.NotifyChange(ctx); err != nil {
		slog.Warn("Failed to publish catalog change", slog.String("error", err.Error()))
	}
}
