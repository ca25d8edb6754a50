package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keyword-pivot/internal/config"
	"keyword-pivot/internal/handler"
	"keyword-pivot/internal/service"
	"keyword-pivot/pkg/dataset"
	"keyword-pivot/pkg/logger"
	"keyword-pivot/pkg/metrics"
	"keyword-pivot/pkg/pivot"
	"keyword-pivot/pkg/ratelimit"
)

type Application struct {
	configPath string
	debug      bool
}

func main() {
	app := &Application{}

	flag.StringVar(&app.configPath, "config", "config/dev.yaml", "Configuration file path")
	flag.BoolVar(&app.debug, "debug", false, "Enable debug mode")
	flag.Parse()

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func (app *Application) Run() error {
	cfg, err := config.NewManager().Load(app.configPath)
	if err != nil {
		return err
	}
	if app.debug {
		cfg.Logger.Level = "debug"
	}
	logger.SetLogger(logger.New(cfg.Logger))
	log := logger.GetLogger().WithField("component", "server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received")
		cancel()
	}()

	loadCtx, loadCancel := context.WithTimeout(ctx, cfg.Dataset.Timeout())
	store, report, err := dataset.NewLoader(cfg.Dataset.Timeout()).Load(loadCtx, cfg.Dataset.Source, cfg.Vocabulary)
	loadCancel()
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	if err := recorder.RegisterDataset(store); err != nil {
		return fmt.Errorf("failed to register dataset metrics: %w", err)
	}

	engine, err := pivot.NewEngine(store, recorder)
	if err != nil {
		return err
	}

	sessions := service.NewSessionManager(engine, cfg.Session.MaxSessions, cfg.Session.TTL())
	defer sessions.Close()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limitStore := ratelimit.NewMemoryStore(cfg.RateLimit.Window(), cfg.RateLimit.Window())
		defer limitStore.Close()
		if limiter, err = ratelimit.NewLimiter(limitStore, cfg.RateLimit.Requests, cfg.RateLimit.Window()); err != nil {
			return err
		}
	}

	ctl := handler.NewController(engine, sessions, recorder, handler.QueryLimits{
		DefaultPageSize: cfg.Query.DefaultPageSize,
		MaxPageSize:     cfg.Query.MaxPageSize,
		Timeout:         cfg.Query.Timeout(),
	})
	server := handler.NewApp(ctl, limiter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Listen(addr)
	}()

	log.WithFields(map[string]interface{}{
		"addr":     addr,
		"records":  store.Len(),
		"issues":   len(store.Issues()),
		"rejected": report.Rejected,
	}).Info("Server started")

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully")
	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.WithError(err).Warn("Server did not shut down cleanly")
	}
	log.Info("Server stopped")
	return nil
}
