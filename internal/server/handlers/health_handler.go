package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthProbeTimeout = 5 * time.Second

// Pinger is anything whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports store and gateway reachability.
type HealthHandler struct {
	store   Pinger
	backend Pinger
	logger  *zap.Logger
}

// NewHealthHandler constructs the health handler. backend may be nil when no
// REST gateway is configured.
func NewHealthHandler(store, backend Pinger, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{store: store, backend: backend, logger: logger}
}

// Check always answers 200; ok is false when any configured dependency fails.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	dbOK := h.probe(ctx, "store", h.store)
	body := gin.H{"db": dbOK, "backend": nil, "ok": dbOK}

	if h.backend != nil {
		backendOK := h.probe(ctx, "gateway", h.backend)
		body["backend"] = backendOK
		body["ok"] = dbOK && backendOK
	}

	c.JSON(http.StatusOK, body)
}

func (h *HealthHandler) probe(ctx context.Context, name string, p Pinger) bool {
	if err := p.Ping(ctx); err != nil {
		h.logger.Warn("health probe failed", zap.String("dependency", name), zap.Error(err))
		return false
	}
	return true
}
