// Package httpapi is the thin HTTP binding of spec.md §6: route handling
// only, no business logic — every handler calls straight into
// controller.Controller's public operations, matching the teacher's
// cmd/gateway/main.go wiring style (raw net/http + http.ServeMux, no router
// framework of its own).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/controller"
)

// Server wraps an http.Server bound to a controller.Controller.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// New builds the HTTP server listening on addr, rate-limited to
// ratePerMinute requests per client.
func New(addr string, ctrl *controller.Controller, ratePerMinute int, logger *zap.Logger) *Server {
	h := &handlers{ctrl: ctrl, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dotbots", h.list)
	mux.HandleFunc("GET /dotbots/{addr}", h.get)
	mux.HandleFunc("PUT /dotbots/{addr}/{app}/move_raw", h.moveRaw)
	mux.HandleFunc("PUT /dotbots/{addr}/{app}/rgb_led", h.rgbLed)
	mux.HandleFunc("PUT /dotbots/{addr}/{app}/waypoints", h.waypoints)
	mux.HandleFunc("PUT /dotbots/{addr}/{app}/xgo_action", h.xgoAction)
	mux.HandleFunc("DELETE /dotbots/{addr}/positions", h.clearPositions)

	limiter := newRateLimiter(ratePerMinute, logger)
	chained := loggingMiddleware(logger)(limiter.middleware(mux))

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: chained, ReadHeaderTimeout: 5 * time.Second},
		logger:     logger,
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
