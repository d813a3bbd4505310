package repository

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

// FileEvents хранит заказы в одном JSON-файле
type FileEvents struct {
	file  *jsonFile[domain.Event]
	newID func() string
}

func NewFileEvents(path string, opts ...Option) (*FileEvents, error) {
	f, err := newJSONFile[domain.Event](path, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &FileEvents{file: f, newID: uuid.NewString}, nil
}

// Ensure interfaces
var _ EventRepository = (*FileEvents)(nil)

func (r *FileEvents) List(ctx context.Context, f EventFilter) ([]domain.Event, error) {
	events, err := r.file.load(ctx)
	if err != nil {
		return nil, err
	}
	if f.Search != "" {
		kept := events[:0]
		for _, e := range events {
			if containsIgnoreCase(e.Title+" "+e.Description+" "+e.Address, f.Search) {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	if f.Limit > 0 && f.Limit < len(events) {
		events = events[len(events)-f.Limit:]
	}
	return events, nil
}

func (r *FileEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	events, err := r.file.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(events, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	cp := events[i]
	return &cp, nil
}

func (r *FileEvents) Create(ctx context.Context, e *domain.Event) error {
	var id string
	err := r.file.update(ctx, "create", func(events []domain.Event) ([]domain.Event, error) {
		id = r.newID()
		for indexOf(events, id) >= 0 {
			id = r.newID()
		}
		rec := *e
		rec.ID = id
		rec.Items = nil
		return append(events, rec), nil
	})
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r *FileEvents) Update(ctx context.Context, e *domain.Event) error {
	return r.file.update(ctx, "update", func(events []domain.Event) ([]domain.Event, error) {
		i := indexOf(events, e.ID)
		if i < 0 {
			return nil, ErrNotFound
		}
		rec := *e
		rec.Items = nil
		events[i] = rec
		return events, nil
	})
}

func (r *FileEvents) Delete(ctx context.Context, id string) error {
	return r.file.update(ctx, "delete", func(events []domain.Event) ([]domain.Event, error) {
		i := indexOf(events, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		return slices.Delete(events, i, i+1), nil
	})
}

func indexOf(events []domain.Event, id string) int {
	return slices.IndexFunc(events, func(e domain.Event) bool { return e.ID == id })
}
