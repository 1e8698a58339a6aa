package service

import (
	"context"

	"products-api/internal/domain"
	"products-api/internal/repository"
	"products-api/internal/schema"
)

// ProductService defines the interface for product business logic
type ProductService interface {
	Create(ctx context.Context, doc schema.Document) (*domain.Product, error)
	List(ctx context.Context, filter *repository.ProductFilter) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, id string, doc schema.Document) (*domain.Product, error)
	Delete(ctx context.Context, id string) (*domain.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// Create validates doc against the product schema and stores it
func (s *productService) Create(ctx context.Context, doc schema.Document) (*domain.Product, error) {
	valid, err := domain.ProductSchema.Validate(doc, schema.Full)
	if err != nil {
		return nil, err
	}

	product := domain.NewProduct(valid)
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// List returns all products, or only those matching filter when it is set
func (s *productService) List(ctx context.Context, filter *repository.ProductFilter) ([]*domain.Product, error) {
	if filter == nil {
		return s.productRepo.List(ctx)
	}
	return s.productRepo.ListFiltered(ctx, *filter)
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// Update validates the supplied fields and applies them. Omitted fields keep their value.
func (s *productService) Update(ctx context.Context, id string, doc schema.Document) (*domain.Product, error) {
	valid, err := domain.ProductSchema.Validate(doc, schema.Partial)
	if err != nil {
		return nil, err
	}

	return s.productRepo.UpdateByID(ctx, id, domain.NewProductUpdate(valid))
}

func (s *productService) Delete(ctx context.Context, id string) (*domain.Product, error) {
	return s.productRepo.DeleteByID(ctx, id)
}
