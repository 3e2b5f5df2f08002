package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avi5049/cardio-risk/internal/assessment"
	"github.com/avi5049/cardio-risk/internal/config"
	httpdelivery "github.com/avi5049/cardio-risk/internal/delivery/http"
	"github.com/avi5049/cardio-risk/internal/logging"
	"github.com/avi5049/cardio-risk/internal/model"
	"github.com/avi5049/cardio-risk/internal/repository/postgres"
	"github.com/avi5049/cardio-risk/internal/risk"
	"github.com/avi5049/cardio-risk/internal/telemetry"
)

const serviceName = "cardio-risk"

func main() {
	logging.Init(serviceName)

	cfg, err := config.Load()
	if err != nil {
		fatal("config error", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	if cfg.OTelEnabled {
		shutdownTracer := telemetry.InitTracer(ctx, serviceName)
		defer telemetry.Flush(context.Background(), shutdownTracer)
		shutdownMetrics := telemetry.InitMetrics(ctx, serviceName)
		defer telemetry.Flush(context.Background(), shutdownMetrics)
	}
	inst := telemetry.NewInstruments()

	var pool *pgxpool.Pool
	if cfg.UsesDB() {
		pool, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fatal("database connection failed", err)
		}
		defer pool.Close()
	}

	adapter := model.NewAdapter(cfg.Model.Timeout, cfg.Model.Threshold, inst)
	loader, src, err := newModelLoader(ctx, cfg, pool, adapter, inst)
	if err != nil {
		fatal("model setup failed", err)
	}
	if err := loader.Load(ctx); err != nil {
		// Keep serving: predictions return model_unavailable and /readyz
		// reports degraded until a reload succeeds.
		slog.Error("initial model load failed", "error", err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Model.Watch {
		go func() {
			if err := model.NewWatcher(loader, src, cfg.Model.PollInterval).Run(watchCtx); err != nil {
				slog.Error("model watcher stopped", "error", err)
			}
		}()
	}

	var db httpdelivery.HealthChecker
	if pool != nil {
		db = pool
	}
	svc := assessment.NewService(risk.NewClassifier(adapter), inst)
	router := httpdelivery.NewRouter(svc, loader, db, httpdelivery.Options{AllowOrigins: cfg.AllowOrigins})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server error", err)
		}
	}()

	slog.Info("server listening", "port", cfg.Port, "model_source", cfg.Model.Source)
	waitForShutdown(server, loader)
}

// newModelLoader picks the artifact source. src is nil for the remote scorer.
func newModelLoader(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, adapter *model.Adapter, inst telemetry.Instruments) (*model.Loader, model.Source, error) {
	switch cfg.Model.Source {
	case config.SourceFile:
		src := model.NewFileSource(cfg.Model.Path)
		return model.NewArtifactLoader(src, adapter, inst), src, nil
	case config.SourcePostgres:
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return nil, nil, err
		}
		src := postgres.NewArtifactSource(pool, cfg.Model.Name)
		return model.NewArtifactLoader(src, adapter, inst), src, nil
	case config.SourceRemote:
		rs := model.NewRemoteScorer(cfg.Model.ServiceURL, cfg.Model.Timeout)
		return model.NewRemoteLoader(rs, adapter, inst), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown model source %q", cfg.Model.Source)
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM. SIGHUP forces a model reload.
func waitForShutdown(server *http.Server, loader *model.Loader) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for s := range sig {
		if s == syscall.SIGHUP {
			slog.Info("SIGHUP received, reloading model")
			_ = loader.Load(context.Background())
			continue
		}
		break
	}

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
