package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/ledger-be/internal/config"
	"github.com/hongminglow/ledger-be/internal/events"
	"github.com/hongminglow/ledger-be/internal/events/amqp"
	applog "github.com/hongminglow/ledger-be/internal/log"
	"github.com/hongminglow/ledger-be/internal/server"
	"github.com/hongminglow/ledger-be/internal/storage/backend"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", applog.FieldComponent, applog.ComponentApp, applog.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := applog.Setup(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With(applog.FieldComponent, applog.ComponentApp)
	if envErr != nil {
		logger.Debug("no .env file found; relying on existing environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close store", applog.FieldError, err)
		}
	}()

	publisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("close event publisher", applog.FieldError, err)
		}
	}()

	srv := server.New(cfg, store, publisher)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ledger backend listening",
			"addr", srv.Addr(),
			"backend", cfg.DataBackend,
			"api_prefix", cfg.APIPrefix)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openPublisher(cfg config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.Nop{}, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, err
	}
	slog.Info("publishing ledger events",
		applog.FieldComponent, applog.ComponentAMQP,
		"exchange", cfg.AMQPExchange)
	return client, nil
}
