// Package api exposes the stockledger engine over HTTP using gin.
//
// Routes (relative to the base path, "/stockledger" by default):
//
//	POST {base}/commitSale
//	POST {base}/receiveStock
//	GET  {base}/sales/:saleId
//	GET  {base}/products/:productId/ledger?type=&limit=
//	GET  {base}/alerts?productId=&limit=
//	GET  /health
//
// Every route under the base path runs the configured Authenticator, which
// places a stockledger.Scope on the request context.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
)

// DefaultBasePath is the route prefix used when none is configured.
const DefaultBasePath = "/stockledger"

// MaxListLimit caps the limit query parameter of list routes.
const MaxListLimit = 500

const defaultListLimit = 50

// Handler serves the stockledger HTTP API.
type Handler struct {
	engine      *stockledger.Engine
	auth        Authenticator
	logger      *slog.Logger
	basePath    string
	serviceName string
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuthenticator replaces the default HeaderAuthenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(h *Handler) { h.auth = a }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithBasePath sets the route prefix.
func WithBasePath(p string) Option {
	return func(h *Handler) { h.basePath = p }
}

// WithServiceName sets the service name reported by the tracing middleware.
func WithServiceName(name string) Option {
	return func(h *Handler) { h.serviceName = name }
}

// New creates a Handler for engine.
func New(engine *stockledger.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine:      engine,
		auth:        HeaderAuthenticator{},
		logger:      slog.Default(),
		basePath:    DefaultBasePath,
		serviceName: "stockledgerd",
	}
	for _, opt := range opts {
		opt(h)
	}
	h.basePath = "/" + strings.Trim(h.basePath, "/")
	if h.basePath == "/" {
		h.basePath = ""
	}
	return h
}

// BasePath returns the normalized route prefix.
func (h *Handler) BasePath() string { return h.basePath }

// Router returns a standalone gin engine with recovery, tracing, request ids
// and access logging installed.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(h.serviceName))
	r.Use(requestID(), accessLog(h.logger))
	r.GET("/health", h.health)
	h.Register(r)
	return r
}

// Register mounts the API routes on r. It does not install the health route
// or any global middleware.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group(h.basePath, authenticate(h.auth))
	g.POST("/commitSale", h.commitSale)
	g.POST("/receiveStock", h.receiveStock)
	g.GET("/sales/:saleId", h.getSale)
	g.GET("/products/:productId/ledger", h.listLedger)
	g.GET("/alerts", h.listAlerts)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.engine.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "healthy"})
}

func (h *Handler) commitSale(c *gin.Context) {
	var req stockledger.CommitSaleRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.engine.CommitSale(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "saleId": res.SaleID})
}

func (h *Handler) receiveStock(c *gin.Context) {
	var req stockledger.ReceiveStockRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.engine.ReceiveStock(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"receiptId":  res.ReceiptID,
		"stockCount": res.StockCount,
	})
}

func (h *Handler) getSale(c *gin.Context) {
	ctx := c.Request.Context()
	storeID := scopeOf(c).StoreID
	saleID := c.Param("saleId")

	s, err := h.engine.GetSale(ctx, storeID, saleID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	items, err := h.engine.ListSaleItems(ctx, storeID, saleID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "sale": s, "items": items})
}

func (h *Handler) listLedger(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}

	opts := entry.ListOpts{Limit: limit}
	switch t := entry.Type(c.Query("type")); t {
	case "", entry.TypeSale, entry.TypeReceipt:
		opts.Type = t
	default:
		abortWithError(c, invalid("type", "must be sale or receipt"))
		return
	}

	entries, err := h.engine.ListEntries(c.Request.Context(), scopeOf(c).StoreID, c.Param("productId"), opts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "entries": entries})
}

func (h *Handler) listAlerts(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}

	alerts, err := h.engine.ListAlerts(c.Request.Context(), scopeOf(c).StoreID, alert.ListOpts{
		ProductID: c.Query("productId"),
		Limit:     limit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "alerts": alerts})
}

// bindJSON decodes the request body into dst. An empty body is a
// validation error.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		msg := err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		abortWithError(c, invalid("body", msg))
		return false
	}
	return true
}

func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		abortWithError(c, invalid("limit", "must be a positive integer"))
		return 0, false
	}
	return min(n, MaxListLimit), true
}
