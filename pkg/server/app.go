package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"CycleScope/internal/usecase"
	"CycleScope/pkg/config"
	xhttp "CycleScope/pkg/http"
	pkgkafka "CycleScope/pkg/kafka"
	applogger "CycleScope/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scores     *usecase.ScoreService
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	records    pkgkafka.MessageHandler
}

// New creates a new App. consumer may be nil when Kafka is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scores *usecase.ScoreService,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	records pkgkafka.MessageHandler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		scores:     scores,
		httpServer: httpServer,
		consumer:   consumer,
		records:    records,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start consumer if configured
	if a.consumer != nil && a.records != nil {
		a.consumer.RegisterHandler(a.records)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.records.Topic()))
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := a.scores.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("scoring loop stopped", applogger.Error(err))
		}
	}()
	a.log.Info("scoring loop started",
		applogger.Duration("interval", usecase.ClampInterval(a.cfg.Scoring.Interval)),
		applogger.String("env", a.cfg.App.Environment),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(loopDone)
}

// shutdown gracefully stops all services. Clients built by DI are closed by
// its cleanup func.
func (a *App) shutdown(loopDone <-chan struct{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	select {
	case <-loopDone:
	case <-ctx.Done():
		a.log.Warn("scoring loop did not stop in time", applogger.Duration("timeout", a.cfg.HTTP.ShutdownTimeout))
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
