package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/server/handlers"
)

const (
	sessionCookieName = "floorlog_session"
	requestIDHeader   = "X-Request-ID"
	requestIDKey      = "request_id"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Records *handlers.RecordsHandler
	Reports *handlers.ReportsHandler
	Health  *handlers.HealthHandler
}

// SessionOptions configures the signed session cookie.
type SessionOptions struct {
	Secret []byte
	MaxAge time.Duration
	Secure bool
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, opts SessionOptions, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	store := cookie.NewStore(opts.Secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(sessions.Sessions(sessionCookieName, store))

	r.GET("/health", h.Health.Check)

	auth := r.Group("/auth")
	auth.POST("/verify", h.Auth.Verify)
	auth.GET("/status", h.Auth.Status)
	auth.POST("/logout", h.Auth.Logout)

	protected := r.Group("/", handlers.RequireAuth())

	recs := protected.Group("/records/:group")
	recs.GET("", h.Records.List)
	recs.POST("", h.Records.Create)
	recs.GET("/:id", h.Records.Get)
	recs.PUT("/:id", h.Records.Update)
	recs.DELETE("/:id", h.Records.Delete)

	days := protected.Group("/reports/days")
	days.GET("", h.Reports.Days)
	days.GET("/:date", h.Reports.Day)
	days.DELETE("/:date", h.Reports.DeleteDay)
	days.GET("/:date/export", h.Reports.Export)
	days.POST("/:date/sheets", h.Reports.PublishSheets)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
