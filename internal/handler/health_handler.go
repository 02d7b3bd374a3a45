package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/garala-cf/garala/internal/platform/logger"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports whether the store answers and the broker is connected.
type HealthHandler struct {
	ping   func(ctx context.Context) error
	broker interface{ Healthy() bool }
	logger *logger.Logger
}

// NewHealthHandler builds the /healthz handler. broker may be nil.
func NewHealthHandler(ping func(ctx context.Context) error, broker interface{ Healthy() bool }, log *logger.Logger) *HealthHandler {
	return &HealthHandler{ping: ping, broker: broker, logger: log.Named("HealthHandler")}
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Broker string `json:"broker,omitempty"`
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "ok"}
	code := http.StatusOK
	if err := h.ping(ctx); err != nil {
		h.logger.Warn("Store ping failed", zap.Error(err))
		resp.Status, resp.Store = "unavailable", "down"
		code = http.StatusServiceUnavailable
	}
	if h.broker != nil {
		resp.Broker = "ok"
		if !h.broker.Healthy() {
			resp.Status, resp.Broker = "unavailable", "down"
			code = http.StatusServiceUnavailable
		}
	}
	respondWithJSON(w, code, resp)
}
