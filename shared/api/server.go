// shared/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/metrics"
)

type BaseServer struct {
	Router *mux.Router
	Server *http.Server
	Logger *zap.Logger
}

// ServerOptions tunes the common middleware chain.
type ServerOptions struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

func NewBaseServer(addr string, logger *zap.Logger, opts ServerOptions) *BaseServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()

	// Apply common middleware
	router.Use(RequestIDMiddleware)
	router.Use(LoggingMiddleware(logger, opts.Metrics))
	router.Use(CORSMiddleware(opts.AllowedOrigins))

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	server := &http.Server{
		Addr:    addr,
		Handler: router,
		// No WriteTimeout: live subscriptions hold the connection open and
		// manage their own write deadlines.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &BaseServer{
		Router: router,
		Server: server,
		Logger: logger,
	}
}

func (bs *BaseServer) Start() error {
	bs.Logger.Info("starting HTTP server", zap.String("addr", bs.Server.Addr))
	// ListenAndServe returns http.ErrServerClosed on graceful shutdown
	if err := bs.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

func (bs *BaseServer) Shutdown(ctx context.Context) error {
	bs.Logger.Info("shutting down HTTP server")
	return bs.Server.Shutdown(ctx)
}
