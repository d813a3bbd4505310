// Package client is the consumer side of the order API: one method per REST
// operation, plus a query cache (QueryCache) and a Store that applies the
// cache and optimistic-update policy on top of the calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

// ErrNetwork wraps failures where no response was received.
var ErrNetwork = errors.New("network error, please try again later")

// APIError is a non-2xx response. Info holds the decoded JSON body, if any.
type APIError struct {
	Code int
	Info map[string]any
	msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.msg, e.Code)
}

// Message prefers the server's message over the generic one.
func (e *APIError) Message() string {
	if m, ok := e.Info["message"].(string); ok && m != "" {
		return m
	}
	return e.msg
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) FetchEvents(ctx context.Context, search string, max int) ([]domain.EventSummary, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if max > 0 {
		q.Set("max", strconv.Itoa(max))
	}
	path := "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Events []domain.EventSummary `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out, "an error occurred while fetching the events"); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) FetchEvent(ctx context.Context, id string) (*domain.Event, error) {
	var out struct {
		Event *domain.Event `json:"event"`
	}
	if err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(id), nil, &out, "an error occurred while fetching the event"); err != nil {
		return nil, err
	}
	return out.Event, nil
}

func (c *Client) CreateEvent(ctx context.Context, e domain.Event) (*domain.Event, error) {
	var out struct {
		Event *domain.Event `json:"event"`
	}
	body := map[string]any{"event": e}
	if err := c.do(ctx, http.MethodPost, "/events", body, &out, "an error occurred while creating the event"); err != nil {
		return nil, err
	}
	return out.Event, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id string, e domain.Event) (*domain.Event, error) {
	var out struct {
		Event *domain.Event `json:"event"`
	}
	body := map[string]any{"event": e}
	if err := c.do(ctx, http.MethodPut, "/events/"+url.PathEscape(id), body, &out, "an error occurred while updating the event"); err != nil {
		return nil, err
	}
	return out.Event, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil, "an error occurred while deleting the event")
}

func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	var out struct {
		Products []domain.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out, "an error occurred while fetching the products"); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) CreateProduct(ctx context.Context, name, category string) (*domain.Product, error) {
	var out struct {
		Product *domain.Product `json:"product"`
	}
	body := map[string]string{"name": name}
	if category != "" {
		body["category"] = category
	}
	if err := c.do(ctx, http.MethodPost, "/products", body, &out, "an error occurred while creating the product"); err != nil {
		return nil, err
	}
	return out.Product, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, failMsg string) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Code: resp.StatusCode, msg: failMsg}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Info)
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
