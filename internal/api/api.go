// Package api implements the HTTP surface of the search service.
package api

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/snappedai/snapsearch/internal/conf"
	"github.com/snappedai/snapsearch/internal/datastore"
	"github.com/snappedai/snapsearch/internal/imaging"
	"github.com/snappedai/snapsearch/internal/logging"
	"github.com/snappedai/snapsearch/internal/observability"
	"github.com/snappedai/snapsearch/internal/provider"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings
	Images   *imaging.Store
	Searcher provider.Searcher

	metrics *observability.Metrics

	apiLogger      *slog.Logger
	apiLevelVar    *slog.LevelVar
	apiLoggerClose func() error

	// wg tracks write-behind persistence goroutines so shutdown can drain
	// pending result writes.
	wg sync.WaitGroup
}

// New creates the API controller and registers its routes on e.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	images *imaging.Store, searcher provider.Searcher, metrics *observability.Metrics) *Controller {

	c := &Controller{
		Echo:        e,
		DS:          ds,
		Settings:    settings,
		Images:      images,
		Searcher:    searcher,
		metrics:     metrics,
		apiLevelVar: new(slog.LevelVar),
	}

	var err error
	c.apiLogger, c.apiLoggerClose, err = logging.NewFileLogger("logs/api.log", "api", c.apiLevelVar)
	if err != nil || c.apiLogger == nil {
		c.apiLogger = slog.New(slog.NewTextHandler(io.Discard, nil)).With("service", "api")
		c.apiLoggerClose = func() error { return nil }
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(middleware.Recover())
	if metrics != nil {
		c.Group.Use(c.requestDurationMiddleware)
	}
	c.initRoutes()

	// Cropped and uploaded images are served so the provider can fetch them.
	if settings.Upload.Path != "" {
		e.Static("/static/uploads", settings.Upload.Path)
	}

	return c
}

func (c *Controller) initRoutes() {
	images := c.Group.Group("/images")
	images.POST("/upload", c.UploadImage)
	images.POST("/clip", c.ClipImage)
	images.POST("/search", c.SearchImage)
	images.GET("/searches", c.ListSearches)
	images.GET("/searches/:id", c.GetSearch)
	images.POST("/searches/:id/results/filter", c.FilterResults)
	images.GET("/dimensions", c.GetDimensions)

	c.Group.GET("/health", c.Health)
	if c.metrics != nil {
		c.Group.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// Shutdown waits for pending write-behind persistence and closes the API
// log file.
func (c *Controller) Shutdown() {
	c.wg.Wait()
	if c.apiLoggerClose != nil {
		_ = c.apiLoggerClose()
	}
}

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse builds an error response with a fresh correlation id.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	resp := &ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Error = message
	}
	return resp
}

// HandleError logs the error with its correlation id and writes the JSON
// error body.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	attrs := []any{
		"correlation_id", resp.CorrelationID,
		"message", message,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	c.apiLogger.Error("API error", attrs...)

	return ctx.JSON(code, resp)
}

func generateCorrelationID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

func (c *Controller) requestDurationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		status := ctx.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		c.metrics.RequestDuration.WithLabelValues(
			ctx.Request().Method,
			ctx.Path(),
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
		return err
	}
}
