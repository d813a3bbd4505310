package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

// fakeAPI serves one event and counts requests per route.
type fakeAPI struct {
	mu      sync.Mutex
	event   domain.Event
	failPut bool
	onPut   func()

	lists, gets, products atomic.Int32
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, _ *http.Request) {
		f.lists.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"events": []domain.EventSummary{f.event.Summary()}})
	})
	mux.HandleFunc("GET /events/{id}", func(w http.ResponseWriter, _ *http.Request) {
		f.gets.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"event": f.event})
	})
	mux.HandleFunc("PUT /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.onPut != nil {
			f.onPut()
		}
		if f.failPut {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "internal server error"})
			return
		}
		var body struct {
			Event domain.Event `json:"event"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		body.Event.ID = r.PathValue("id")
		f.event = body.Event
		writeJSON(w, http.StatusOK, map[string]any{"event": f.event})
	})
	mux.HandleFunc("DELETE /events/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Event deleted"})
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, _ *http.Request) {
		f.products.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"products": []domain.Product{{ID: "1", Name: "Cake", Category: "custom", Active: true}}})
	})
	mux.HandleFunc("POST /products", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"message": "Product created", "product": domain.Product{ID: "2", Name: "Pie", Category: "custom", Active: true}})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setupStore(t *testing.T) (*Store, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{event: domain.Event{ID: "1", Title: "Party", Date: "2024-06-01", Time: "18:00", Address: "Main St", Status: domain.StatusPending}}
	ts := httptest.NewServer(api.handler())
	t.Cleanup(ts.Close)
	return NewStore(New(ts.URL, nil), nil), api
}

func TestStore_ListIsCachedDetailIsNot(t *testing.T) {
	ctx := context.Background()
	s, api := setupStore(t)

	for i := 0; i < 3; i++ {
		list, err := s.Events(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		_, err = s.Event(ctx, "1")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, api.lists.Load())
	assert.EqualValues(t, 3, api.gets.Load())

	// a different search is a different query
	_, err := s.Events(ctx, "party", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.lists.Load())
}

func TestStore_UpdateCommitted(t *testing.T) {
	ctx := context.Background()
	s, api := setupStore(t)
	_, err := s.Event(ctx, "1")
	require.NoError(t, err)
	_, err = s.Events(ctx, "", 0)
	require.NoError(t, err)

	seen := make(chan string, 1)
	api.onPut = func() {
		e, _ := s.CachedEvent("1")
		seen <- e.Title
	}
	var states []MutationState
	s.OnMutation = func(_ string, st MutationState) { states = append(states, st) }

	draft := api.event
	draft.Title = "Renamed"
	m := s.UpdateEvent(ctx, "1", draft)

	require.NoError(t, m.Err)
	assert.Equal(t, MutationCommitted, m.State)
	assert.Equal(t, "Renamed", <-seen)
	assert.Equal(t, "Renamed", m.Result.Title)
	assert.Equal(t, "Party", m.Previous.Title)
	assert.Equal(t, []MutationState{MutationPending, MutationCommitted}, states)

	// the list was invalidated and refetches on the next read
	_, err = s.Events(ctx, "", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.lists.Load())
}

func TestStore_UpdateRolledBack(t *testing.T) {
	ctx := context.Background()
	s, api := setupStore(t)
	_, err := s.Event(ctx, "1")
	require.NoError(t, err)

	api.failPut = true
	seen := make(chan string, 1)
	api.onPut = func() {
		e, _ := s.CachedEvent("1")
		seen <- e.Title
	}

	draft := api.event
	draft.Title = "Renamed"
	m := s.UpdateEvent(ctx, "1", draft)

	assert.Equal(t, MutationRolledBack, m.State)
	var apiErr *APIError
	require.ErrorAs(t, m.Err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Code)
	assert.Equal(t, "Renamed", <-seen)

	e, ok := s.CachedEvent("1")
	require.True(t, ok)
	assert.Equal(t, "Party", e.Title)
}

func TestStore_UpdateWithoutCachedValueRollsBackToEmpty(t *testing.T) {
	s, api := setupStore(t)
	api.failPut = true

	m := s.UpdateEvent(context.Background(), "1", domain.Event{Title: "X"})
	assert.Equal(t, MutationRolledBack, m.State)
	assert.Nil(t, m.Previous)
	_, ok := s.CachedEvent("1")
	assert.False(t, ok)
}

func TestStore_DeleteInvalidatesLazily(t *testing.T) {
	ctx := context.Background()
	s, api := setupStore(t)
	_, err := s.Events(ctx, "", 0)
	require.NoError(t, err)

	require.NoError(t, s.DeleteEvent(ctx, "1"))
	// no refetch until read
	assert.EqualValues(t, 1, api.lists.Load())
	_, ok := s.CachedEvent("1")
	assert.False(t, ok)

	_, err = s.Events(ctx, "", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.lists.Load())
}

func TestStore_CreateProductInvalidatesProducts(t *testing.T) {
	ctx := context.Background()
	s, api := setupStore(t)

	_, err := s.Products(ctx)
	require.NoError(t, err)
	_, err = s.Products(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, api.products.Load())

	p, err := s.CreateProduct(ctx, "Pie", "")
	require.NoError(t, err)
	assert.Equal(t, "Pie", p.Name)

	_, err = s.Products(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.products.Load())
}

func TestMutationState_String(t *testing.T) {
	assert.Equal(t, "pending", MutationPending.String())
	assert.Equal(t, "committed", MutationCommitted.String())
	assert.Equal(t, "rolled-back", MutationRolledBack.String())
}
