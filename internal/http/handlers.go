package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/KarenYumi/OrganizationApp/internal/audit"
	"github.com/KarenYumi/OrganizationApp/internal/domain"
	"github.com/KarenYumi/OrganizationApp/internal/repository"
	"github.com/KarenYumi/OrganizationApp/internal/service"
)

// HistorySource отдаёт журнал изменений заказа, новые записи первыми
type HistorySource interface {
	History(ctx context.Context, eventID string, limit int64) ([]*audit.Log, error)
}

// Options дополнительные настройки сервера
type Options struct {
	// ResponseDelay задержка ответов get, update и delete
	ResponseDelay time.Duration
	// Metrics отдаётся на /metrics, если задан
	Metrics http.Handler
	// History включает GET /events/:id/history, если задан
	History HistorySource
}

const defaultHistoryLimit = 20

type Server struct {
	engine   *gin.Engine
	events   *service.EventService
	products *service.ProductService
	logger   *zap.Logger
	opts     Options
}

func NewServer(events *service.EventService, products *service.ProductService, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	// *gin.Context carries request cancellation and trace context to services
	r.ContextWithFallback = true
	r.Use(gin.Recovery(), loggerMiddleware(logger))
	s := &Server{engine: r, events: events, products: products, logger: logger, opts: opts}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.opts.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.opts.Metrics))
	}

	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	events := s.engine.Group("/events")
	{
		events.GET("", s.listEvents)
		events.GET("/:id", s.getEvent)
		if s.opts.History != nil {
			events.GET("/:id/history", s.getEventHistory)
		}
		events.POST("", s.createEvent)
		events.PUT("/:id", s.replaceEvent)
		events.DELETE("/:id", s.deleteEvent)
	}

	products := s.engine.Group("/products")
	{
		products.GET("", s.listProducts)
		products.POST("", s.createProduct)
	}
}

// Event handlers

type eventEnvelope struct {
	Event *domain.Event `json:"event"`
}

// @Summary List events
// @Tags events
// @Produce json
// @Param search query string false "Title, description or address contains"
// @Param max query int false "Keep only the last max events"
// @Success 200 {object} map[string][]domain.EventSummary
// @Failure 500 {object} map[string]string
// @Router /events [get]
func (s *Server) listEvents(c *gin.Context) {
	var f repository.EventFilter
	f.Search = c.Query("search")
	if v := c.Query("max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	list, err := s.events.List(c, f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

// @Summary Get event by id
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} eventEnvelope
// @Failure 404 {object} map[string]string
// @Router /events/{id} [get]
func (s *Server) getEvent(c *gin.Context) {
	id := c.Param("id")
	e, err := s.events.Get(c, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "For the id " + id + ", no event could be found."})
			return
		}
		s.writeError(c, err)
		return
	}
	s.delay(c)
	c.JSON(http.StatusOK, gin.H{"event": e})
}

// @Summary Create event
// @Tags events
// @Accept json
// @Produce json
// @Param input body eventEnvelope true "Event"
// @Success 200 {object} eventEnvelope
// @Failure 400 {object} map[string]string
// @Router /events [post]
func (s *Server) createEvent(c *gin.Context) {
	draft, ok := s.bindEvent(c, false)
	if !ok {
		return
	}
	e, err := s.events.Create(c, *draft)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": e})
}

// @Summary Replace event
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param input body eventEnvelope true "Event"
// @Success 200 {object} eventEnvelope
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /events/{id} [put]
func (s *Server) replaceEvent(c *gin.Context) {
	draft, ok := s.bindEvent(c, true)
	if !ok {
		return
	}
	e, err := s.events.Replace(c, c.Param("id"), *draft)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.delay(c)
	c.JSON(http.StatusOK, gin.H{"event": e})
}

// @Summary Delete event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /events/{id} [delete]
func (s *Server) deleteEvent(c *gin.Context) {
	if err := s.events.Delete(c, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	s.delay(c)
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

// @Summary Event change history
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Param limit query int false "Max entries, newest first"
// @Success 200 {object} map[string][]audit.Log
// @Failure 500 {object} map[string]string
// @Router /events/{id}/history [get]
func (s *Server) getEventHistory(c *gin.Context) {
	limit := int64(defaultHistoryLimit)
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	logs, err := s.opts.History.History(c, c.Param("id"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": logs})
}

// bindEvent читает {"event": {...}}. С allowBare тело без обёртки
// считается самим заказом: так PUT отправляли старые клиенты.
func (s *Server) bindEvent(c *gin.Context, allowBare bool) (*domain.Event, bool) {
	var env eventEnvelope
	if err := c.ShouldBindBodyWith(&env, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return nil, false
	}
	if env.Event == nil && allowBare {
		var bare domain.Event
		if err := c.ShouldBindBodyWith(&bare, binding.JSON); err == nil {
			env.Event = &bare
		}
	}
	if env.Event == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Event is required"})
		return nil, false
	}
	return env.Event, true
}

// Product handlers

type createProductReq struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// @Summary List active products
// @Tags products
// @Produce json
// @Success 200 {object} map[string][]domain.Product
// @Failure 500 {object} map[string]string
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.products.List(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body createProductReq true "Product"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	p, err := s.products.Create(c, req.Name, req.Category)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"message": "Product already exists"})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product created", "product": p})
}

func (s *Server) delay(c *gin.Context) {
	if s.opts.ResponseDelay <= 0 {
		return
	}
	t := time.NewTimer(s.opts.ResponseDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-c.Request.Context().Done():
	}
}

// writeError переводит ошибку в статус. Ошибки хранилища логируются,
// клиент получает общее сообщение.
func (s *Server) writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(status, gin.H{"message": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
