package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

// FileProducts хранит каталог товаров в JSON-файле
type FileProducts struct {
	file *jsonFile[domain.Product]
}

func NewFileProducts(path string, opts ...Option) (*FileProducts, error) {
	f, err := newJSONFile[domain.Product](path, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &FileProducts{file: f}, nil
}

var _ ProductRepository = (*FileProducts)(nil)

func (r *FileProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	products, err := r.file.load(ctx)
	if err != nil {
		return nil, err
	}
	if !f.ActiveOnly {
		return products, nil
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *FileProducts) Create(ctx context.Context, p *domain.Product) error {
	name := strings.TrimSpace(p.Name)
	return r.file.update(ctx, "create", func(products []domain.Product) ([]domain.Product, error) {
		for _, existing := range products {
			if existing.Active && strings.EqualFold(strings.TrimSpace(existing.Name), name) {
				return nil, ErrConflict
			}
		}
		p.ID = nextProductID(products)
		return append(products, *p), nil
	})
}

// nextProductID max(числовых id)+1, нечисловые id пропускаются
func nextProductID(products []domain.Product) string {
	var top int64
	for _, p := range products {
		n, err := strconv.ParseInt(strings.TrimSpace(p.ID), 10, 64)
		if err == nil && n > top {
			top = n
		}
	}
	return strconv.FormatInt(top+1, 10)
}
