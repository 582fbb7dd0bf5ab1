package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/your-org/gatewatch/internal/api"
	"github.com/your-org/gatewatch/internal/api/ws"
	"github.com/your-org/gatewatch/internal/attendance"
	"github.com/your-org/gatewatch/internal/capture"
	"github.com/your-org/gatewatch/internal/config"
	"github.com/your-org/gatewatch/internal/monitor"
	"github.com/your-org/gatewatch/internal/notify"
	"github.com/your-org/gatewatch/internal/observability"
	"github.com/your-org/gatewatch/internal/storage"
	"github.com/your-org/gatewatch/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// .env is optional, local development convenience.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting gatewatch monitor", "port", cfg.Server.Port)

	loc, err := cfg.Monitor.Location()
	if err != nil {
		slog.Error("resolve timezone", "timezone", cfg.Monitor.Timezone, "error", err)
		os.Exit(1)
	}

	// Postgres holds the camera roster, enrollment and attendance. Nothing
	// works without it.
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("apply migrations", "error", err)
		os.Exit(1)
	}

	// MinIO archives match snapshots. Best-effort.
	var minioStore *storage.MinIOStore
	if ms, err := storage.NewMinIOStore(cfg.MinIO); err != nil {
		slog.Warn("connect to minio, snapshots disabled", "error", err)
	} else {
		if err := ms.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		minioStore = ms
	}

	// NATS carries arrival events to downstream notification services.
	// Best-effort, attendance still gets recorded without it.
	var outbox *notify.Outbox
	if ob, err := notify.NewOutbox(cfg.NATS.URL); err != nil {
		slog.Warn("connect to nats, arrival events disabled", "error", err)
	} else {
		if err := ob.EnsureStream(context.Background()); err != nil {
			slog.Warn("ensure nats stream", "error", err)
		}
		outbox = ob
		defer ob.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Vision engine. On failure the monitor runs degraded: reachability
	// probes only, no recognition until a restart fixes the engine.
	var engine *vision.Engine
	if e, err := vision.NewEngine(ctx, cfg.Vision); err != nil {
		slog.Warn("vision engine init failed, running degraded", "error", err)
	} else {
		engine = e
		defer e.Close()
	}

	hub := ws.NewHub()
	go hub.Run()

	var publisher attendance.Publisher
	if outbox != nil {
		publisher = outbox
	}
	recorder := attendance.NewRecorder(db, publisher, hub, loc)

	grabber := capture.NewGrabber(cfg.Monitor.FFmpeg, cfg.Monitor.CaptureTimeout)

	var schedEngine monitor.Engine
	var archive monitor.Archive
	if engine != nil {
		schedEngine = engine
	}
	if minioStore != nil {
		archive = minioStore
	}
	scheduler := monitor.NewScheduler(db, grabber, schedEngine, recorder, archive,
		cfg.Monitor.PollInterval, cfg.Monitor.ProbeTimeout, float32(cfg.Vision.MatchThreshold))
	go scheduler.Run(ctx)

	router := api.NewRouter(api.RouterConfig{
		APIKey:    cfg.Server.APIKey,
		DB:        db,
		MinIO:     minioStore,
		Outbox:    outbox,
		Hub:       hub,
		Scheduler: scheduler,
		Location:  loc,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("monitor stopped")
}
