package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrConflict возвращается при дубликате имени товара
	ErrConflict = errors.New("already exists")
)

// EventFilter параметры списка заказов
type EventFilter struct {
	// Search ищет в title, description и address без учёта регистра
	Search string
	// Limit оставляет последние Limit записей в порядке хранения, 0 все
	Limit int
}

// ProductFilter параметры списка товаров
type ProductFilter struct {
	ActiveOnly bool
}

// EventRepository интерфейс репозитория заказов
type EventRepository interface {
	List(ctx context.Context, f EventFilter) ([]domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// Create присваивает e.ID
	Create(ctx context.Context, e *domain.Event) error
	// Update заменяет запись с e.ID
	Update(ctx context.Context, e *domain.Event) error
	Delete(ctx context.Context, id string) error
}

// ProductRepository интерфейс репозитория каталога
type ProductRepository interface {
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	// Create присваивает p.ID; ErrConflict, если активный товар с таким
	// именем (без учёта регистра) уже есть
	Create(ctx context.Context, p *domain.Product) error
}

// Locker сериализует циклы read-modify-write над именованным ресурсом
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
