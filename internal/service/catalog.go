package service

import (
	"context"

	"bot-service/internal/models"
	"bot-service/internal/repository"

	"github.com/google/uuid"
)

type CatalogService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type catalogService struct {
	categories repository.CategoryRepo
	products   repository.ProductRepo
}

func NewCatalogService(categories repository.CategoryRepo, products repository.ProductRepo) CatalogService {
	return &catalogService{
		categories: categories,
		products:   products,
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.ListActive(ctx)
}

func (s *catalogService) ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error) {
	if categoryID != nil {
		cat, err := s.categories.GetActiveByID(ctx, *categoryID)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			return nil, ErrCategoryNotFound
		}
	}
	return s.products.ListActive(ctx, categoryID)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.products.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}
