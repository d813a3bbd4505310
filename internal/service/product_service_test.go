package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
	"github.com/KarenYumi/OrganizationApp/internal/repository"
)

func setupPS(t *testing.T) *ProductService {
	t.Helper()
	repo, err := repository.NewFileProducts(filepath.Join(t.TempDir(), "products.json"))
	require.NoError(t, err)
	return NewProductService(repo)
}

func TestProduct_Create_Valid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)

	p, err := ps.Create(ctx, "  Chocolate Cake ", "")
	require.NoError(t, err)
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "Chocolate Cake", p.Name)
	assert.Equal(t, domain.DefaultCategory, p.Category)
	assert.True(t, p.Active)

	p2, err := ps.Create(ctx, "Carrot Cake", "cakes")
	require.NoError(t, err)
	assert.Equal(t, "2", p2.ID)
	assert.Equal(t, "cakes", p2.Category)
}

func TestProduct_Create_Invalid(t *testing.T) {
	ps := setupPS(t)
	_, err := ps.Create(context.Background(), "   ", "cakes")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProduct_Create_DuplicateName(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)

	_, err := ps.Create(ctx, "Chocolate Cake", "")
	require.NoError(t, err)
	_, err = ps.Create(ctx, "chocolate cake", "")
	assert.ErrorIs(t, err, repository.ErrConflict)

	list, err := ps.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
