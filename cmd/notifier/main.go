package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/tide-notifier/internal/adapter/directory"
	"github.com/couchcryptid/tide-notifier/internal/adapter/forecast"
	httpadapter "github.com/couchcryptid/tide-notifier/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/tide-notifier/internal/adapter/kafka"
	"github.com/couchcryptid/tide-notifier/internal/adapter/natsbus"
	"github.com/couchcryptid/tide-notifier/internal/config"
	"github.com/couchcryptid/tide-notifier/internal/notify"
	"github.com/couchcryptid/tide-notifier/internal/observability"
)

func main() {
	once := flag.Bool("once", false, "run a single notification cycle for today and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := forecast.NewClient(cfg.ForecastURL, cfg.ForecastTimeout, metrics, logger)
	measurements := forecast.NewCachedSource(client, cfg.ForecastCacheSize, cfg.ForecastCacheTTL, nil, metrics)
	subscribers := directory.NewFile(cfg.SubscribersFile)

	sender, closeSender, err := newSender(cfg, logger)
	if err != nil {
		logger.Error("failed to create sender", "sender", cfg.Sender, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeSender.Close(); err != nil {
			logger.Error("sender close error", "error", err)
		}
	}()
	logger.Info("notification transport ready", "sender", cfg.Sender)

	svc := notify.New(measurements, subscribers, sender, cfg.NotifyLocation, logger)
	scheduler := notify.NewScheduler(svc, notify.SchedulerConfig{
		Spec:     cfg.NotifySchedule,
		Location: cfg.NotifyLocation,
		Timeout:  cfg.NotifyTimeout,
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if _, err := scheduler.RunOnce(ctx); err != nil {
			stop()
			closeAndExit(closeSender, logger)
		}
		return
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, scheduler, scheduler, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scheduler.
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := scheduler.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Let an in-flight run finish before the sender is closed.
	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete")
}

// newSender builds the configured transport and returns it with its closer.
func newSender(cfg *config.Config, logger *slog.Logger) (notify.MessageSender, io.Closer, error) {
	switch cfg.Sender {
	case config.SenderNATS:
		nc, err := natsbus.Connect(cfg.NATSURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return natsbus.NewPublisher(nc, cfg.NATSSubject, logger), drainer{nc.Drain}, nil
	default:
		w := kafkaadapter.NewWriter(cfg, logger)
		return w, w, nil
	}
}

type drainer struct {
	drain func() error
}

func (d drainer) Close() error { return d.drain() }

func closeAndExit(c io.Closer, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("sender close error", "error", err)
	}
	os.Exit(1)
}
