package client

import (
	"context"
	"strconv"
	"time"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

const (
	// ListStaleTime is how long a list result is served without refetching.
	ListStaleTime = 5 * time.Second
	// DetailStaleTime of zero refetches a single event on every read.
	DetailStaleTime = 0
)

var (
	eventsKey   = Key{"events"}
	productsKey = Key{"products"}
)

func eventListKey(search string, max int) Key {
	return Key{"events", "list", search, strconv.Itoa(max)}
}

func eventKey(id string) Key { return Key{"events", "detail", id} }

// MutationState is the lifecycle of an optimistic update.
type MutationState int

const (
	MutationPending MutationState = iota
	MutationCommitted
	MutationRolledBack
)

func (s MutationState) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationCommitted:
		return "committed"
	case MutationRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// Mutation describes one UpdateEvent call.
type Mutation struct {
	State    MutationState
	Previous *domain.Event
	Result   *domain.Event
	Err      error
}

// Store applies the cache policy to Client calls.
type Store struct {
	client *Client
	cache  *QueryCache

	// OnMutation, when set, observes every state an update passes through.
	OnMutation func(id string, state MutationState)
}

func NewStore(client *Client, cache *QueryCache) *Store {
	if cache == nil {
		cache = NewQueryCache()
	}
	return &Store{client: client, cache: cache}
}

func (s *Store) Cache() *QueryCache { return s.cache }

func (s *Store) Events(ctx context.Context, search string, max int) ([]domain.EventSummary, error) {
	return Fetch(ctx, s.cache, eventListKey(search, max), ListStaleTime, func(ctx context.Context) ([]domain.EventSummary, error) {
		return s.client.FetchEvents(ctx, search, max)
	})
}

func (s *Store) Event(ctx context.Context, id string) (*domain.Event, error) {
	return Fetch(ctx, s.cache, eventKey(id), DetailStaleTime, func(ctx context.Context) (*domain.Event, error) {
		return s.client.FetchEvent(ctx, id)
	})
}

// CachedEvent returns the event currently held in the cache, if any.
func (s *Store) CachedEvent(id string) (*domain.Event, bool) {
	v, ok := s.cache.Get(eventKey(id))
	if !ok {
		return nil, false
	}
	e, ok := v.(*domain.Event)
	return e, ok
}

func (s *Store) Products(ctx context.Context) ([]domain.Product, error) {
	return Fetch(ctx, s.cache, productsKey, ListStaleTime, func(ctx context.Context) ([]domain.Product, error) {
		return s.client.FetchProducts(ctx)
	})
}

func (s *Store) CreateEvent(ctx context.Context, e domain.Event) (*domain.Event, error) {
	created, err := s.client.CreateEvent(ctx, e)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(eventsKey)
	return created, nil
}

// UpdateEvent writes the draft into the cached event before the request is
// sent. A failed request restores the previous value. Either way the event
// and every list are invalidated once the request settles.
func (s *Store) UpdateEvent(ctx context.Context, id string, draft domain.Event) *Mutation {
	key := eventKey(id)
	s.cache.Cancel(key)

	m := &Mutation{State: MutationPending}
	prev, hadPrev := s.cache.Get(key)
	if hadPrev {
		m.Previous, _ = prev.(*domain.Event)
	}
	optimistic := draft
	optimistic.ID = id
	s.cache.Set(key, &optimistic)
	s.observe(id, m.State)

	// the request is not abandoned once sent
	res, err := s.client.UpdateEvent(context.WithoutCancel(ctx), id, draft)
	if err != nil {
		if hadPrev {
			s.cache.Set(key, prev)
		} else {
			s.cache.Remove(key)
		}
		m.State, m.Err = MutationRolledBack, err
	} else {
		m.State, m.Result = MutationCommitted, res
	}
	s.cache.Invalidate(eventsKey)
	s.observe(id, m.State)
	return m
}

// DeleteEvent marks the event queries stale without refetching them.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.client.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.cache.Cancel(eventKey(id))
	s.cache.Remove(eventKey(id))
	s.cache.Invalidate(eventsKey)
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, name, category string) (*domain.Product, error) {
	p, err := s.client.CreateProduct(ctx, name, category)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(productsKey)
	return p, nil
}

func (s *Store) observe(id string, state MutationState) {
	if s.OnMutation != nil {
		s.OnMutation(id, state)
	}
}
