package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/stockenza/stockenza/internal/core/domain"
	"github.com/stockenza/stockenza/internal/core/service"
	"github.com/stockenza/stockenza/internal/port"
)

type Server struct {
	engine    *gin.Engine
	inventory *service.InventoryService
	orders    *service.OrderService
	reports   *service.ReportService
	cache     port.CacheRepository
}

func NewServer(inventory *service.InventoryService, orders *service.OrderService, reports *service.ReportService, cache port.CacheRepository) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{
		engine:    r,
		inventory: inventory,
		orders:    orders,
		reports:   reports,
		cache:     cache,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.healthCheck)

	api := s.engine.Group("/api")
	api.Use(s.authRequired)
	{
		inventory := api.Group("/inventory")
		inventory.GET("", s.listItems)
		inventory.POST("", s.createItem)
		inventory.PUT(":id", s.updateItem)
		inventory.DELETE(":id", s.deleteItem)

		orders := api.Group("/orders")
		orders.POST("", s.placeOrder)
		orders.GET("", s.listOrders)

		reports := api.Group("/reports")
		reports.GET("/summary", s.reportSummary)
		reports.GET("/chart", s.reportChart)
		reports.GET("/pnl", s.reportPnL)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Order handlers

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

type placeOrderRequest struct {
	RequestID string             `json:"requestId"`
	Items     []orderItemRequest `json:"items"`
	// TotalAmount is accepted for wire compatibility with older clients but
	// never trusted; the order is always priced server-side.
	TotalAmount json.RawMessage `json:"totalAmount"`
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{ProductID: it.ProductID, Qty: it.Qty})
	}

	order, err := s.orders.PlaceOrder(c.Request.Context(), principal(c), req.RequestID, items)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOrders(c *gin.Context) {
	rng, err := parseDateRange(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	orders, err := s.orders.ListOrders(c.Request.Context(), principal(c), rng)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// Inventory handlers

type createItemRequest struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	ImageURL     string          `json:"imageUrl"`
}

type updateItemRequest struct {
	Name         *string          `json:"name"`
	SKU          *string          `json:"sku"`
	Category     *string          `json:"category"`
	Quantity     *int             `json:"quantity"`
	CostPrice    *decimal.Decimal `json:"costPrice"`
	SellingPrice *decimal.Decimal `json:"sellingPrice"`
	ImageURL     *string          `json:"imageUrl"`
}

func (s *Server) listItems(c *gin.Context) {
	items, err := s.inventory.List(c.Request.Context(), principal(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) createItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	item, err := s.inventory.Create(c.Request.Context(), principal(c), domain.InventoryItem{
		Name:         req.Name,
		SKU:          req.SKU,
		Category:     req.Category,
		Quantity:     req.Quantity,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		ImageURL:     req.ImageURL,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) updateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	item, err := s.inventory.Update(c.Request.Context(), principal(c), c.Param("id"), service.ItemChanges{
		Name:         req.Name,
		SKU:          req.SKU,
		Category:     req.Category,
		Quantity:     req.Quantity,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		ImageURL:     req.ImageURL,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) deleteItem(c *gin.Context) {
	id := c.Param("id")
	if err := s.inventory.Delete(c.Request.Context(), principal(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "message": "item deleted successfully"})
}

// Report handlers

func (s *Server) reportSummary(c *gin.Context) {
	rng, err := parseDateRange(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	summary, err := s.reports.Summary(c.Request.Context(), principal(c), rng)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) reportChart(c *gin.Context) {
	rng, err := parseDateRange(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	series, err := s.reports.DailySeries(c.Request.Context(), principal(c), rng)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) reportPnL(c *gin.Context) {
	rng, err := parseDateRange(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	rows, err := s.reports.ProductPnL(c.Request.Context(), principal(c), rng)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// helpers

func (s *Server) respondError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"message": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseDateRange(c *gin.Context) (domain.DateRange, error) {
	var rng domain.DateRange
	if v := c.Query("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return rng, fmt.Errorf("invalid startDate %q: %w", v, service.ErrInvalidRequest)
		}
		rng.From = &t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return rng, fmt.Errorf("invalid endDate %q: %w", v, service.ErrInvalidRequest)
		}
		rng.To = &t
	}
	return rng, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
