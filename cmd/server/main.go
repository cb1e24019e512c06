package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/persona-interviewer/internal/a2a"
	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
	"github.com/BerylCAtieno/persona-interviewer/internal/config"
	"github.com/BerylCAtieno/persona-interviewer/internal/desktop"
	"github.com/BerylCAtieno/persona-interviewer/internal/logging"
	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
	"github.com/BerylCAtieno/persona-interviewer/internal/web"
	"github.com/BerylCAtieno/persona-interviewer/internal/wizard"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, os.Getenv("GIN_MODE") != gin.ReleaseMode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// saved desktop settings override the environment
	settings := desktop.NewStore(cfg.SettingsPath)
	if saved, err := settings.Load(); err != nil {
		logger.Warn("ignoring settings file", zap.String("path", cfg.SettingsPath), zap.Error(err))
	} else {
		if saved.APIURL != "" {
			cfg.APIURL = saved.APIURL
		}
		if saved.PersonaCount != 0 {
			cfg.PersonaCount = saved.PersonaCount
		}
		if saved.ReportsDir != "" {
			cfg.ReportsDir = saved.ReportsDir
		}
	}

	client := backend.NewClient(cfg.APIURL,
		backend.WithTimeout(cfg.Timeout),
		backend.WithProbeTimeout(cfg.ProbeTimeout),
		backend.WithLogger(logger.Named("backend")),
	)

	progressLog := logger.Named("progress")
	reporter := progress.New(func(u progress.Update) {
		progressLog.Debug("progress", zap.Int("percent", u.Percent), zap.String("message", u.Message))
	}, progress.WithInterval(cfg.ProgressInterval))

	ctrl := wizard.New(client,
		wizard.WithLogger(logger.Named("wizard")),
		wizard.WithProgress(reporter),
		wizard.WithPersonaCount(cfg.PersonaCount),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Probe(ctx); err != nil {
		logger.Warn("interview backend not reachable yet",
			zap.String("url", cfg.APIURL),
			zap.String("reason", backend.DescribeProbeFailure(err)),
		)
	}

	router := web.NewRouter(web.NewHandler(ctrl, client, settings, cfg.ReportsDir, logger.Named("http")))
	a2a.NewHandler(ctrl, cfg.PublicURL, logger.Named("a2a")).Register(router)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("persona interviewer starting",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.APIURL),
		)
		logger.Info("wizard API available", zap.String("url", cfg.PublicURL+"/api/wizard"))
		logger.Info("A2A endpoint available", zap.String("url", cfg.PublicURL+a2a.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
