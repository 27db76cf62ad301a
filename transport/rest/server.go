package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// NewRouter builds the HTTP API. Callers may mount more handlers on the
// returned router before serving it.
func NewRouter(logger *slog.Logger, sessions sessionUseCase) chi.Router {
	router := chi.NewRouter()

	ping := NewPingHandler()
	handler := NewSessionHandler(logger, sessions)

	router.Group(func(r chi.Router) {
		r.Use(observe)

		r.Get("/ping", ping.PingHandler)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", handler.Start)
			r.Get("/{id}", handler.Get)
			r.Delete("/{id}", handler.End)
			r.Post("/{id}/marks", handler.PlaceMark)
			r.Post("/{id}/reset", handler.Reset)
		})
	})

	router.Handle("/metrics", promhttp.Handler())

	return router
}

// Start serves handler on port until ctx is cancelled, then shuts down
// gracefully.
func Start(ctx context.Context, port string, handler http.Handler) error {
	// no read/write timeouts: they would also cut hijacked websocket connections
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped with error: %w", err)
	}

	return nil
}
