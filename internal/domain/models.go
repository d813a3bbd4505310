package domain

import (
	"strings"
	"time"
)

// EventStatus статус заказа на доске
type EventStatus string

const (
	StatusToDo      EventStatus = "To-do"
	StatusPending   EventStatus = "Pending"
	StatusReady     EventStatus = "Ready"
	StatusDelivered EventStatus = "Delivered"
	StatusCancelled EventStatus = "Cancelled"
)

// legacyStatuses значения статусов из первых версий клиента
var legacyStatuses = map[string]EventStatus{
	"a fazer":   StatusToDo,
	"pendente":  StatusPending,
	"pronto":    StatusReady,
	"entregue":  StatusDelivered,
	"cancelado": StatusCancelled,
}

// ParseStatus возвращает канонический статус, принимая и старые написания
func ParseStatus(s string) (EventStatus, bool) {
	s = strings.TrimSpace(s)
	switch EventStatus(s) {
	case StatusToDo, StatusPending, StatusReady, StatusDelivered, StatusCancelled:
		return EventStatus(s), true
	}
	st, ok := legacyStatuses[strings.ToLower(s)]
	return st, ok
}

// LineItem одна позиция заказа
type LineItem struct {
	Name   string `json:"name"`
	Weight string `json:"weight,omitempty"`
	Note   string `json:"note,omitempty"`
}

// ProductFields три исторические кодировки позиций заказа
type ProductFields struct {
	// Products названия товаров через перевод строки
	Products string `json:"products"`
	// Product, Weight и Note описывают одну позицию
	Product string `json:"product,omitempty"`
	Weight  string `json:"weight,omitempty"`
	Note    string `json:"note,omitempty"`
	// DetailedProducts JSON-массив LineItem
	DetailedProducts string `json:"detailedProducts,omitempty"`
}

// Event заказ клиента (название историческое, это не событие календаря)
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Date        string      `json:"date"`
	Time        string      `json:"time"`
	Address     string      `json:"address"`
	Status      EventStatus `json:"status"`
	ProductFields

	// Items декодированные позиции, заполняются только в ответах
	Items []LineItem `json:"items,omitempty"`
}

// EventSummary проекция заказа для списка
type EventSummary struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Products    string      `json:"products"`
	Date        string      `json:"date"`
	Time        string      `json:"time"`
	Address     string      `json:"address"`
	Status      EventStatus `json:"status"`
}

// Summary возвращает проекцию заказа для списка
func (e Event) Summary() EventSummary {
	return EventSummary{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Products:    e.Products,
		Date:        e.Date,
		Time:        e.Time,
		Address:     e.Address,
		Status:      e.Status,
	}
}

// DefaultCategory категория по умолчанию для новых товаров каталога
const DefaultCategory = "custom"

// Product позиция каталога
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// ChangeAction тип изменения заказа
type ChangeAction string

const (
	ActionCreated  ChangeAction = "created"
	ActionReplaced ChangeAction = "replaced"
	ActionDeleted  ChangeAction = "deleted"
)

// EventChange описывает успешную мутацию заказа
type EventChange struct {
	Action  ChangeAction `json:"action"`
	EventID string       `json:"event_id"`
	Event   *Event       `json:"event,omitempty"`
	At      time.Time    `json:"at"`
}
