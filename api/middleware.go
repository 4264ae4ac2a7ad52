package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/id"
)

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-ID"

const (
	ctxRequestID = "stockledger.request_id"
	ctxScope     = "stockledger.scope"
)

// requestID propagates an inbound X-Request-ID when it is a request id or a
// UUID, and mints a "req_" id otherwise.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if !validRequestID(rid) {
			rid = id.NewRequestID().String()
		}
		c.Set(ctxRequestID, rid)
		c.Header(HeaderRequestID, rid)
		c.Next()
	}
}

func validRequestID(s string) bool {
	if s == "" {
		return false
	}
	if _, err := id.ParseRequestID(s); err == nil {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// accessLog writes one structured line per request.
func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"request_id", c.GetString(ctxRequestID),
		}
		if sc, ok := c.Get(ctxScope); ok {
			attrs = append(attrs, "store_id", sc.(stockledger.Scope).StoreID)
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, "error", errs.Last().Err)
		}
		logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

// authenticate resolves the caller scope and attaches it to the request
// context for the engine.
func authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, err := auth.Authenticate(c.Request)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(ctxScope, sc)
		c.Request = c.Request.WithContext(stockledger.WithScope(c.Request.Context(), sc))
		c.Next()
	}
}

func scopeOf(c *gin.Context) stockledger.Scope {
	sc, _ := stockledger.ScopeFromContext(c.Request.Context())
	return sc
}
