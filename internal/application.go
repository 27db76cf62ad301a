package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-engine/internal/config"
	"github.com/rocketscienceinc/tictactoe-engine/internal/repository"
	"github.com/rocketscienceinc/tictactoe-engine/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-engine/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-engine/transport/rest"
	"github.com/rocketscienceinc/tictactoe-engine/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the game server until SIGINT/SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, logger, conf, func() {
		log.Info("Application started", "port", conf.HTTPPort)
	})
}

// Serve wires storage, use cases and transports and blocks until ctx is done.
// ready is called once the dependencies are up, before the listener starts.
func Serve(ctx context.Context, logger *slog.Logger, conf *config.Config, ready func()) error {
	log := logger.With("component", "app")

	if conf.Redis.GetRedisAddr() == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, conf.Redis)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sessionRepo := repository.NewSessionRepository(redisStorage, conf.SessionTTL)
	sessionUseCase := usecase.NewSessionManager(logger, sessionRepo)

	router := rest.NewRouter(logger, sessionUseCase)
	router.Handle("/ws", websocket.New(logger, sessionUseCase).WithOriginPatterns(conf.WSOriginPatterns...))

	if ready != nil {
		ready()
	}

	if err = rest.Start(ctx, conf.HTTPPort, router); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}
