package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
	"github.com/KarenYumi/OrganizationApp/internal/lineitem"
	"github.com/KarenYumi/OrganizationApp/internal/repository"
)

// ErrInvalidInput ошибка валидации входных данных
var ErrInvalidInput = errors.New("invalid input")

// ChangeNotifier получает уведомление после каждой успешной мутации заказа
type ChangeNotifier interface {
	Notify(ctx context.Context, change domain.EventChange) error
}

// EventService реализует логику заказов: валидация, нормализация товаров, CRUD
type EventService struct {
	repo      repository.EventRepository
	notifiers []ChangeNotifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewEventService(repo repository.EventRepository, logger *zap.Logger, notifiers ...ChangeNotifier) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, notifiers: notifiers, logger: logger, now: time.Now}
}

// List возвращает проекцию заказов; товары в сыром виде
func (s *EventService) List(ctx context.Context, f repository.EventFilter) ([]domain.EventSummary, error) {
	events, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]domain.EventSummary, 0, len(events))
	for _, e := range events {
		out = append(out, e.Summary())
	}
	return out, nil
}

// Get возвращает заказ с декодированными позициями
func (s *EventService) Get(ctx context.Context, id string) (*domain.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, repository.ErrNotFound
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Items = lineitem.Decode(e.ProductFields)
	return e, nil
}

// Create валидирует черновик и сохраняет новый заказ
func (s *EventService) Create(ctx context.Context, draft domain.Event) (*domain.Event, error) {
	e, err := prepare(draft)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &e); err != nil {
		return nil, err
	}
	e.Items = lineitem.Decode(e.ProductFields)
	s.notify(ctx, domain.ActionCreated, &e)
	return &e, nil
}

// Replace полностью заменяет заказ; id берётся из пути
func (s *EventService) Replace(ctx context.Context, id string, draft domain.Event) (*domain.Event, error) {
	e, err := prepare(draft)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, repository.ErrNotFound
	}
	e.ID = id
	if err := s.repo.Update(ctx, &e); err != nil {
		return nil, err
	}
	e.Items = lineitem.Decode(e.ProductFields)
	s.notify(ctx, domain.ActionReplaced, &e)
	return &e, nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return repository.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, domain.ActionDeleted, &domain.Event{ID: id})
	return nil
}

// prepare проверяет обязательные поля, приводит статус к каноническому виду
// и перегенерирует кодировки товаров, если в черновике есть items
func prepare(draft domain.Event) (domain.Event, error) {
	e := draft
	e.ID = ""
	e.Title = strings.TrimSpace(e.Title)
	e.Date = strings.TrimSpace(e.Date)
	e.Time = strings.TrimSpace(e.Time)
	e.Address = strings.TrimSpace(e.Address)

	required := []struct{ name, value string }{
		{"title", e.Title},
		{"date", e.Date},
		{"time", e.Time},
		{"address", e.Address},
		{"status", strings.TrimSpace(string(e.Status))},
	}
	for _, f := range required {
		if f.value == "" {
			return domain.Event{}, fmt.Errorf("%w: %s is required", ErrInvalidInput, f.name)
		}
	}
	status, ok := domain.ParseStatus(string(e.Status))
	if !ok {
		return domain.Event{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, e.Status)
	}
	e.Status = status

	if e.Items != nil {
		e.ProductFields = lineitem.Encode(e.Items)
	}
	e.Items = nil
	return e, nil
}

func (s *EventService) notify(ctx context.Context, action domain.ChangeAction, e *domain.Event) {
	change := domain.EventChange{Action: action, EventID: e.ID, At: s.now().UTC()}
	if action != domain.ActionDeleted {
		change.Event = e
	}
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, change); err != nil {
			s.logger.Warn("event change notification failed",
				zap.String("event_id", e.ID),
				zap.String("action", string(action)),
				zap.Error(err))
		}
	}
}

// LogNotifier пишет изменения заказов в лог
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier { return &LogNotifier{logger: logger} }

func (n *LogNotifier) Notify(_ context.Context, change domain.EventChange) error {
	fields := []zap.Field{
		zap.String("event_id", change.EventID),
		zap.String("action", string(change.Action)),
	}
	if change.Event != nil {
		fields = append(fields,
			zap.String("status", string(change.Event.Status)),
			zap.String("products", lineitem.Preview(change.Event.Items, 50)),
		)
	}
	n.logger.Info("event changed", fields...)
	return nil
}
