package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/snacklabs/feedback-insights/internal/api"
	"github.com/snacklabs/feedback-insights/internal/config"
	"github.com/snacklabs/feedback-insights/internal/handlers"
	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/service"
)

const shutdownTimeout = 10 * time.Second

// RunHTTPServer builds the router and serves until SIGINT/SIGTERM, then
// drains in-flight requests.
func RunHTTPServer(cfg *config.Config, svc *service.Feedback, index *JobIndex, log logger.Logger) error {
	handler := handlers.NewFeedbackHandler(svc, cfg.Server.MaxUploadMB, log)

	opts := api.Options{
		Server:    cfg.Server,
		JobsIndex: index != nil,
	}
	if index != nil {
		opts.HealthChecks = append(opts.HealthChecks, func() error {
			return index.DB.DB().Ping()
		})
	}

	router := api.NewRouter(handler, opts, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
