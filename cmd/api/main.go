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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/inaiurai/fleetdispatch/internal/auth"
	"github.com/inaiurai/fleetdispatch/internal/config"
	"github.com/inaiurai/fleetdispatch/internal/dashboard"
	"github.com/inaiurai/fleetdispatch/internal/execution"
	"github.com/inaiurai/fleetdispatch/internal/handlers"
	"github.com/inaiurai/fleetdispatch/internal/officetime"
	"github.com/inaiurai/fleetdispatch/internal/planner"
	"github.com/inaiurai/fleetdispatch/internal/pool"
	"github.com/inaiurai/fleetdispatch/internal/registry"
	"github.com/inaiurai/fleetdispatch/internal/repository"
	"github.com/inaiurai/fleetdispatch/internal/router"
	"github.com/inaiurai/fleetdispatch/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Invalid configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and DATABASE_URL is correct", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(dbPool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Rooms and charging stations are loaded once; nothing works without them.
	registrySvc, err := registry.Load(ctx, registry.NewRepository(dbPool))
	if err != nil {
		slog.Error("Failed to load room and station registries", "error", err)
		os.Exit(1)
	}
	slog.Info("Registries loaded", "rooms", len(registrySvc.Rooms()), "stations", len(registrySvc.Stations()))

	buckets, err := officetime.NewBucketer(cfg.OfficeTimeZone)
	if err != nil {
		slog.Error("Invalid office time zone", "zone", cfg.OfficeTimeZone, "error", err)
		os.Exit(1)
	}

	// Allocation core
	possibilityRepo := repository.NewPossibilityRepo(dbPool, cfg.Store.Timeout)
	assignmentRepo := repository.NewAssignmentRepo(dbPool)
	robotRepo := repository.NewRobotRepo(dbPool)

	oracle := planner.NewClient(cfg.Planner.URL, cfg.Planner.Timeout)
	engine := services.NewCostEngine(oracle, possibilityRepo, buckets, cfg.Weights, cfg.Planner.Tolerance, logger)
	taskPool := pool.New()
	allocator := services.NewAllocationService(taskPool, engine, possibilityRepo, buckets, assignmentRepo, cfg.MaxParallelScoring, logger)

	validator, err := services.NewValidator(ctx, cfg.SchemaDir)
	if err != nil {
		slog.Error("Schema validator init failed", "dir", cfg.SchemaDir, "error", err)
		os.Exit(1)
	}
	factory := services.NewTaskFactory(validator, registrySvc)

	// Room task generation runs as a periodic River job, once at start and
	// then every generation interval.
	generator := services.NewGenerator(registrySvc, cfg.Generation.DeadlineWindow, cfg.Generation.MaxPriority, uint64(time.Now().UnixNano()))
	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewGenerateTasksWorker(generator, taskPool, logger))

	var periodic []*river.PeriodicJob
	if cfg.Generation.Enabled && cfg.Generation.TaskCount > 0 {
		count := cfg.Generation.TaskCount
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(cfg.Generation.Interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return execution.GenerateTasksArgs{Count: count}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Auth, registry and dashboard
	authSvc := auth.NewService(robotRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)
	registryHandler := registry.NewHandler(registrySvc, logger)
	dashHandler := dashboard.NewHandler(authSvc, assignmentRepo, taskPool, registrySvc, buckets, logger)

	mux := http.NewServeMux()
	mux.Handle("/v1/", router.New(authHandler, registryHandler, dashHandler))
	RegisterV1Routes(mux, authSvc, robotRepo, taskPool, factory, allocator, logger)
	mux.HandleFunc("GET /v1/task-kinds", handlers.ListTaskKinds)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (processes generation jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{Addr: serverAddr, Handler: corsHandler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(shutdownCtx); err != nil {
			slog.Warn("River client stop", "error", err)
		}
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting HTTP server", "addr", serverAddr, "office_tz", cfg.OfficeTimeZone,
		"planner", cfg.Planner.URL, "time_bucket", buckets.Bucket(time.Now()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped", "pending_tasks", taskPool.Len())
}
