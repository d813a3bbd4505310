package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
	"github.com/KarenYumi/OrganizationApp/internal/repository"
)

// ProductService инкапсулирует бизнес-логику каталога товаров
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// List возвращает только активные товары
func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx, repository.ProductFilter{ActiveOnly: true})
}

// Create добавляет товар в каталог. Пустая категория заменяется на DefaultCategory.
func (s *ProductService) Create(ctx context.Context, name, category string) (*domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.DefaultCategory
	}
	p := domain.Product{Name: name, Category: category, Active: true}
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
